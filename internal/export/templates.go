package export

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateHTML))

// TemplateData holds data for report template rendering
type TemplateData struct {
	Title       string
	ClientName  string
	Period      string
	BodyHTML    template.HTML
	Author      string
	GeneratedAt time.Time
}

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #222; max-width: 800px; margin: 2rem auto; }
    h1 { color: #1a7f5a; border-bottom: 2px solid #1a7f5a; padding-bottom: 0.5rem; }
    h2 { color: #1a7f5a; margin-top: 1.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .summary { background: #f0f9f5; border-left: 3px solid #1a7f5a; padding: 1rem; }
    pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; font-size: 0.85em; }
    .footer { margin-top: 3rem; color: #999; font-size: 0.8em; border-top: 1px solid #ddd; padding-top: 0.5rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{.ClientName}}{{if .Period}} | {{.Period}}{{end}}{{if .Author}} | Prepared by {{.Author}}{{end}}
  </div>
  <div>{{.BodyHTML}}</div>
  <div class="footer">Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04 MST"}} by PeakSuite</div>
</body>
</html>`
