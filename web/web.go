// Package web renders the snippet editing page.
package web

import (
	"embed"
	"html/template"
	"io"
)

// Mode tells the page whether it shows a fresh id or an existing snippet.
type Mode string

const (
	ModeNew  Mode = "new"
	ModeEdit Mode = "edit"
)

// View is the model the page is rendered from. Content is raw text; the
// template escapes it.
type View struct {
	ID      string
	Mode    Mode
	Content string
}

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/paste.html"))

// Render writes the editing page for v.
func Render(w io.Writer, v View) error {
	return pageTmpl.Execute(w, v)
}
