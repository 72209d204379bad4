// Package view renders the oracle's page: the date form, the workflow
// tracker and the results panel.
package view

import (
	"embed"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"

	"dob-oracle/internal/domain"
)

//go:embed templates
var templateFS embed.FS

// PageTemplate is the name handlers pass to gin's c.HTML.
const PageTemplate = "page"

// Page is everything the page template needs for one render.
type Page struct {
	MaxDate   string
	DateValue string
	FormError string
	State     *domain.SessionState
}

// Loading reports whether the form must be locked.
func (p Page) Loading() bool {
	return p.State != nil && p.State.Analyzing
}

// ShowTracker is false until the first status arrives.
func (p Page) ShowTracker() bool {
	return p.State != nil && p.State.Workflow != nil
}

func (p Page) ShowResults() bool {
	return p.State != nil && p.State.Results != nil
}

func funcs() map[string]any {
	return map[string]any{
		"steps":      Steps,
		"progress":   Progress,
		"formatDate": FormatDate,
		"number":     FormatNumber,
		"floor":      Floor,
	}
}

// HTMLTemplates parses the page templates for gin's SetHTMLTemplate.
func HTMLTemplates() (*htmltemplate.Template, error) {
	return htmltemplate.New("oracle").Funcs(funcs()).ParseFS(templateFS, "templates/*.html")
}

var reportTemplate = texttemplate.Must(texttemplate.New("report").Funcs(funcs()).ParseFS(templateFS, "templates/report.txt"))

// WriteReport renders the tracker and, once available, the results as plain text.
func WriteReport(w io.Writer, state *domain.SessionState) error {
	return reportTemplate.ExecuteTemplate(w, "report.txt", Page{State: state})
}
