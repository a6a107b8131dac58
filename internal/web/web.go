// Package web renders the embedded presenter and audience pages.
//
// The presenter page lists the catalog and drives the server-side presenter through the JSON API.
// The audience page attaches to /ws/{channel}, announces itself with a ready message and renders
// every state or index update; when the websocket cannot connect it polls /api/state/{channel}.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var files embed.FS

var pages = template.Must(template.ParseFS(files, "templates/*.html"))

// Page names.
const (
	PresenterPage = "presenter.html"
	AudiencePage  = "audience.html"
)

// PageData is the template input shared by both pages.
type PageData struct {
	Title       string
	Channel     string
	Placeholder string
	PollMS      int
}

// Render writes page with data.
func Render(w io.Writer, page string, data PageData) error {
	if pages.Lookup(page) == nil {
		return fmt.Errorf("unknown page %q", page)
	}
	return pages.ExecuteTemplate(w, page, data)
}
