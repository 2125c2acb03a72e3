// Package web renders the single-page dashboard served at "/".
//
// The page is a static shell; each card loads its data from the JSON API on the client.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Dashboard is the template name of the dashboard page.
const Dashboard = "dashboard.html"

// Page is the data handed to the dashboard template.
type Page struct {
	Widgets        shared.WidgetsConfig
	Authenticated  bool
	SpotifyEnabled bool
	Now            time.Time
}

// Greeting returns the salutation for the hour of p.Now.
func (p Page) Greeting() string {
	switch h := p.Now.Hour(); {
	case h < 5:
		return "Good night"
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	}
	return "Good evening"
}

// Renderer implements [echo.Renderer] over the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("Monday, January 2") },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the named template to w.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
