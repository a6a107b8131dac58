// Package tasks turns catalog songs into slide decks with real-time progress reporting.
//
// # Loading
//
// [SongLoader] fetches a song's document from a [services.DocumentStore] and parses it with the
// slides package. It implements present.Loader, so the presenter can select songs through it.
// A document without slides fails with [shared.ErrNoSlides].
//
// # Bulk Export
//
// [DeckExporter.Export] loads many songs and writes one file per deck (json, markdown or txt) plus
// an export_manifest.json summary. A single producer fetches documents under a rate limit and feeds
// a pool of writer goroutines. Failures are recorded per song and do not abort the run.
//
// # Progress Reporting
//
// Operations report [ProgressUpdate] values on a caller-supplied channel. Sends never block: a full
// channel drops the update.
package tasks
