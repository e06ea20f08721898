package output

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #d9e1f2; }
tfoot td { font-weight: bold; }
.generated { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">Generated {{.GeneratedAt}}</p>
{{range .Tables}}
<h2>{{.Title}}</h2>
{{if .Rows}}
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
{{if .Footer}}<tfoot><tr>{{range .Footer}}<td>{{.}}</td>{{end}}</tr></tfoot>{{end}}
</table>
{{else}}<p>(none)</p>{{end}}
{{end}}
{{range .Notes}}<p>{{.}}</p>
{{end}}
</body>
</html>
`))

// TemplateData contains all data for rendering the HTML template
type TemplateData struct {
	Report
	GeneratedAt string
}

// RenderHTML renders the report as a standalone HTML page
func RenderHTML(report Report, now time.Time) (string, error) {
	var buf bytes.Buffer
	data := TemplateData{Report: report, GeneratedAt: now.UTC().Format(time.RFC3339)}
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

func generateHTMLOutput(report Report, config Config) error {
	page, err := RenderHTML(report, time.Now())
	if err != nil {
		return err
	}

	if config.OutputDir == "" {
		fmt.Fprint(config.writer(), page)
		return nil
	}

	filename, err := outputPath(config, report.Name+".html")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "HTML report saved to: %s\n", filename)
	}
	return nil
}
