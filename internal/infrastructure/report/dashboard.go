// Package report renders a static HTML dashboard for a finished mapping run.
package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/pharmamap/backend/internal/usecase"
)

type methodRow struct {
	Method string
	Count  int
}

type dashboardData struct {
	GeneratedAt string
	Summary     usecase.Summary
	SuccessRate string
	Methods     []methodRow
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CNOPS to RxNorm Mapping Report</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
  h1 { font-size: 1.4rem; }
  table { border-collapse: collapse; margin: 1rem 0; }
  th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
  th { background: #f2f2f2; }
  .metric { font-size: 1.2rem; font-weight: bold; }
  .muted { color: #777; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>CNOPS to RxNorm Mapping Report</h1>
<p class="muted">Generated {{.GeneratedAt}}</p>

<p>
  <span class="metric">{{.Summary.Mapped}} / {{.Summary.Total}}</span>
  records mapped ({{.SuccessRate}})
</p>

<h2>Confidence tiers</h2>
<table>
  <tr><th>Tier</th><th>Records</th></tr>
  <tr><td>High</td><td>{{.Summary.High}}</td></tr>
  <tr><td>Medium</td><td>{{.Summary.Medium}}</td></tr>
  <tr><td>Low</td><td>{{.Summary.Low}}</td></tr>
  <tr><td>Very low</td><td>{{.Summary.VeryLow}}</td></tr>
</table>

<h2>Mapping methods</h2>
<table>
  <tr><th>Method</th><th>Records</th></tr>
{{- range .Methods}}
  <tr><td>{{.Method}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>

{{- if .Summary.TopUnmapped}}
<h2>Top unmapped ingredients</h2>
<table>
  <tr><th>Ingredient</th><th>Occurrences</th></tr>
{{- range .Summary.TopUnmapped}}
  <tr><td>{{.Ingredient}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>
{{- end}}
</body>
</html>
`))

// WriteDashboard renders the summary as a standalone HTML page
func WriteDashboard(w io.Writer, summary usecase.Summary) error {
	methods := make([]methodRow, 0, len(summary.Methods))
	for method, count := range summary.Methods {
		methods = append(methods, methodRow{Method: method, Count: count})
	}
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].Count != methods[j].Count {
			return methods[i].Count > methods[j].Count
		}
		return methods[i].Method < methods[j].Method
	})

	data := dashboardData{
		GeneratedAt: time.Now().Format(time.RFC1123),
		Summary:     summary,
		SuccessRate: fmt.Sprintf("%.1f%%", summary.SuccessRate()),
		Methods:     methods,
	}

	return dashboardTemplate.Execute(w, data)
}
