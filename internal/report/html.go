package report

import (
	"html/template"
	"io"
	"time"

	"github.com/netxfw/gunlog/internal/analysis"
)

const baseCSS = `
        body { font-family: Arial, sans-serif; margin: 20px; color: #222; }
        h1, h2 { color: #333; }
        table { border-collapse: collapse; width: 100%; margin: 10px 0 20px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; }
        th { background-color: #f2f2f2; }
        td.num { text-align: right; font-variant-numeric: tabular-nums; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        tr:hover { background-color: #f2f2f2; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .meta { color: #666; }
        .failures { border-left: 4px solid #cc6600; padding-left: 10px; }
        .stats td:first-child { font-weight: bold; width: 35%; }
        .notes li { margin: 4px 0; }
        code { color: #a33; word-break: break-all; }`

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}} for {{.Project}} - {{.Date}}</title>
    <style>` + baseCSS + `
    </style>
</head>
<body>
    <p><a href="index.html">&larr; All reports for {{.Date}}</a></p>
    <h1>{{.Title}} for {{.Project}}</h1>
    <p class="meta">Report date: {{.Date}} &middot; Generated on: {{.Generated}} &middot; Records analysed: {{.Records}}</p>
    <div class="failures">
        <p>{{.Failures.Line}}</p>
    </div>
{{- if .Stats}}
    <h2>Summary</h2>
    <table class="stats">
{{- range .Stats}}
        <tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{- end}}
    </table>
{{- end}}
{{- range .Tables}}
    <h2>{{.Title}}{{if .Truncated}} <small class="meta">(top {{.Shown}} of {{.Total}})</small>{{end}}</h2>
{{- if .Rows}}
    <table>
        <tr><th>Item</th><th>{{.ValueHeader}}</th>{{if .ShowShare}}<th>Share</th>{{end}}</tr>
{{- $share := .ShowShare}}
{{- range .Rows}}
        <tr><td>{{.Key}}</td><td class="num">{{.Value}}</td>{{if $share}}<td class="num">{{.Share}}</td>{{end}}</tr>
{{- end}}
    </table>
{{- else}}
    <p class="meta">No data.</p>
{{- end}}
{{- end}}
{{- if .Events}}
    <h2>Events</h2>
    <table>
        <tr><th>Time</th><th>Type</th><th>IP</th><th>Path</th><th>Status</th><th>Detail</th><th>User Agent</th></tr>
{{- range .Events}}
        <tr><td>{{.Time}}</td><td>{{.Type}}</td><td>{{.IP}}</td><td><code>{{.Path}}</code></td><td>{{.Status}}</td><td>{{.Detail}}</td><td>{{.UserAgent}}</td></tr>
{{- end}}
    </table>
{{- end}}
{{- if .Notes}}
    <h2>Notes</h2>
    <ul class="notes">
{{- range .Notes}}
        <li>{{.}}</li>
{{- end}}
    </ul>
{{- end}}
{{- if .Failures.Samples}}
    <h2>Parse Failure Samples</h2>
    <table>
        <tr><th>Line</th><th>Reason</th><th>Text</th></tr>
{{- range .Failures.Samples}}
        <tr><td>{{.Where}}</td><td>{{.Reason}}</td><td><code>{{.Text}}</code></td></tr>
{{- end}}
    </table>
{{- end}}
</body>
</html>
`))

var dateIndexTemplate = template.Must(template.New("date").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Reports for {{.Project}} - {{.Date}}</title>
    <style>` + baseCSS + `
    </style>
</head>
<body>
    <p><a href="../index.html">&larr; {{.Project}}</a></p>
    <h1>Reports for {{.Project}}</h1>
    <p class="meta">Report date: {{.Date}} &middot; Generated on: {{.Generated}}</p>
    <table>
        <tr><th>Report</th><th>Headline</th><th>Records</th><th>Parse Failures</th><th>Text</th></tr>
{{- range .Reports}}
        <tr><td><a href="{{.HTML}}">{{.Title}}</a></td><td>{{.Headline}}</td><td class="num">{{.Records}}</td><td class="num">{{.Failures}}</td><td>{{if .Text}}<a href="{{.Text}}">txt</a>{{end}}</td></tr>
{{- end}}
    </table>
</body>
</html>
`))

var projectIndexTemplate = template.Must(template.New("project").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Report Summary for {{.Project}}</title>
    <style>` + baseCSS + `
    </style>
</head>
<body>
    <p><a href="../index.html">&larr; Dashboard</a></p>
    <h1>Report Summary for {{.Project}}</h1>
    <p class="meta">Last updated: {{.Generated}}</p>
{{- if .Latest}}
    <h2>Latest Reports</h2>
    <ul>
{{- range .Latest}}
        <li><a href="{{.}}">{{.}}</a></li>
{{- end}}
    </ul>
{{- end}}
    <h2>Reports by Date</h2>
    <ul>
{{- range .Dates}}
        <li><a href="{{.}}/index.html">{{.}}</a></li>
{{- else}}
        <li class="meta">No reports yet.</li>
{{- end}}
    </ul>
</body>
</html>
`))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>GunLog Dashboard</title>
    <style>` + baseCSS + `
    </style>
</head>
<body>
    <h1>GunLog Dashboard</h1>
    <p class="meta">Last updated: {{.Generated}}</p>
    <table>
        <tr><th>Project</th><th>Latest Report</th><th>Reports</th><th>Last Run</th><th>Records</th><th>Parse Failures</th></tr>
{{- range .Projects}}
        <tr><td><a href="{{.Dir}}/index.html">{{.Name}}</a></td><td>{{if .Latest}}<a href="{{.Dir}}/{{.Latest}}/index.html">{{.Latest}}</a>{{else}}-{{end}}</td><td class="num">{{.Dates}}</td><td>{{if .Status}}{{.Status}}{{else}}-{{end}}</td><td class="num">{{.Records}}</td><td class="num">{{.Failures}}</td></tr>
{{- else}}
        <tr><td colspan="6" class="meta">No projects yet.</td></tr>
{{- end}}
    </table>
</body>
</html>
`))

// RenderHTML writes the HTML form of a report. All log-derived text is escaped.
// RenderHTML 输出报表的 HTML 形式，所有来自日志的文本均被转义。
func RenderHTML(w io.Writer, s *analysis.Summary, generated time.Time) error {
	return reportTemplate.Execute(w, newReportView(s, generated))
}
