package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var consoleTmpl = template.Must(template.ParseFS(templateFS, "templates/console.html"))

// Render writes the console page for v.
func Render(w io.Writer, v View) error {
	if err := consoleTmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render console: %w", err)
	}
	return nil
}
