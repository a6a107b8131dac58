// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand starts the web presenter and audience pages.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web presenter, audience pages and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the presenter page in a browser",
			},
		},
		Action: r.Serve,
	}
}

// presentCommand launches the presenter TUI.
func presentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "present",
		Usage: "Present songs from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "Presentation transport: broadcast, file or sql (default from [presentation] config)",
			},
			&cli.StringFlag{
				Name:    "song",
				Aliases: []string{"s"},
				Usage:   "Song key or title to present immediately",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Fixed channel key (default from [presentation] config, else the song slug)",
			},
			&cli.BoolFlag{
				Name:  "index-only",
				Usage: "Publish only the slide index on navigation",
			},
		},
		Action: r.Present,
	}
}

// audienceCommand launches the audience TUI.
func audienceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "audience",
		Usage: "Display the presented slide in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "Presentation transport: file, sql or ws (default from [presentation] config)",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Channel key to follow (default from [presentation] config)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Websocket URL for the ws transport (default ws://<server addr>/ws/<channel>)",
			},
		},
		Action: r.Audience,
	}
}

// slidesCommand handles slide extraction.
func slidesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "slides",
		Usage: "Song document operations",
		Commands: []*cli.Command{
			{
				Name:  "parse",
				Usage: "Split a song document (file path or catalog key) into slides",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, json or table",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.SlidesParse,
			},
		},
	}
}

// chordsCommand handles chord transposition.
func chordsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chords",
		Usage: "Chord transposition",
		Commands: []*cli.Command{
			{
				Name:  "transpose",
				Usage: "Transpose a chord or a line of chords",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "chord"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "steps",
						Aliases:  []string{"n"},
						Usage:    "Semitones to move (negative moves down)",
						Required: true,
					},
				},
				Action: r.ChordsTranspose,
			},
			{
				Name:  "apply",
				Usage: "Transpose or strip every chord in a song document",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "steps",
						Aliases: []string{"n"},
						Usage:   "Semitones to move (negative moves down)",
					},
					&cli.BoolFlag{
						Name:  "strip",
						Usage: "Remove chords instead of transposing",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default stdout)",
					},
				},
				Action: r.ChordsApply,
			},
		},
	}
}

// catalogCommand handles catalog listing and bulk export.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Song catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog songs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only songs in this category",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Fuzzy title search",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV",
					},
					&cli.BoolFlag{
						Name:  "categories",
						Usage: "List categories instead of songs",
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:  "export",
				Usage: "Export every song's slides to files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only export songs in this category",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Document fetches per second",
						Value: 5,
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// dailyCommand manages daily set lists.
func dailyCommand(r *Runner) *cli.Command {
	dateFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "date",
			Aliases: []string{"d"},
			Usage:   "Day in YYYY-MM-DD format",
			Value:   time.Now().Format(models.DayLayout),
		}
	}

	return &cli.Command{
		Name:  "daily",
		Usage: "Daily set list operations",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show a day's set list",
				Flags: []cli.Flag{
					dateFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DailyGet,
			},
			{
				Name:      "set",
				Usage:     "Replace a day's set list with the given song keys or titles, in order",
				ArgsUsage: "<song> [song...]",
				Flags:     []cli.Flag{dateFlag()},
				Action:    r.DailySet,
			},
		},
	}
}
