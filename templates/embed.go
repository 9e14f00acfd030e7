// Package templates holds the HTML pages served by the wallpanel host.
package templates

import (
	"embed"
	"html/template"
)

// SetupPage lists the configured panels and adds new ones.
const SetupPage = "setup.html"

//go:embed *.html
var FS embed.FS

// LoadTemplates parses every embedded page.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(FS, "*.html")
}
