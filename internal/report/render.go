package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/money"
)

// JSON renders r with two-space indentation.
func JSON(r domain.ReportData) (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report.JSON: %w", err)
	}
	return string(b), nil
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"brl": money.FormatFloat,
	"pct": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) + "%" },
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>Relatório Financeiro - {{.Period}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { text-align: center; margin-bottom: 30px; }
.summary { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; margin-bottom: 30px; }
.metric { background: #f5f5f5; padding: 15px; border-radius: 8px; }
.recommendation { margin-bottom: 10px; padding: 10px; background: #e8f4f8; border-radius: 5px; }
table { border-collapse: collapse; width: 100%; }
td, th { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
</style>
</head>
<body>
<div class="header">
<h1>Relatório de Análise Financeira</h1>
<h2>{{.Period}}</h2>
</div>
<div class="summary">
<div class="metric"><h3>Receitas</h3><p>{{brl .TotalIncome}}</p></div>
<div class="metric"><h3>Despesas</h3><p>{{brl .TotalExpenses}}</p></div>
<div class="metric"><h3>Saldo Líquido</h3><p>{{brl .NetFlow}}</p></div>
<div class="metric"><h3>Score de Crédito</h3><p>{{.CreditScore}}</p></div>
</div>
{{- with .Charts.CategoryDistribution}}
<h3>Categorias</h3>
<table>
<tr><th>Categoria</th><th>Valor</th><th>Percentual</th></tr>
{{- range .}}
<tr><td>{{.Category}}</td><td>{{brl .Value}}</td><td>{{pct .Percentage}}</td></tr>
{{- end}}
</table>
{{- end}}
<div class="recommendations">
<h3>Recomendações</h3>
{{- range .Recommendations}}
<div class="recommendation">{{.}}</div>
{{- end}}
</div>
</body>
</html>
`))

// HTML renders r as a standalone page suitable for printing to PDF.
func HTML(r domain.ReportData) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("report.HTML: %w", err)
	}
	return buf.String(), nil
}

// Sheet is a named table of string cells.
type Sheet struct {
	Name string
	Rows [][]string
}

// Sheets lays out the summary, categories and recommendations as tables.
func Sheets(r domain.ReportData) []Sheet {
	num := func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

	summary := Sheet{Name: "Resumo", Rows: [][]string{
		{"Período", r.Period},
		{"Total Receitas", num(r.TotalIncome)},
		{"Total Despesas", num(r.TotalExpenses)},
		{"Saldo Líquido", num(r.NetFlow)},
		{"Score de Crédito", strconv.Itoa(r.CreditScore)},
		{"Score de Risco", strconv.Itoa(r.RiskScore)},
	}}

	categories := Sheet{Name: "Categorias", Rows: [][]string{{"Categoria", "Valor", "Percentual"}}}
	for _, c := range r.Charts.CategoryDistribution {
		categories.Rows = append(categories.Rows, []string{c.Category, num(c.Value), num(c.Percentage) + "%"})
	}

	monthly := Sheet{Name: "Fluxo Mensal", Rows: [][]string{{"Mês", "Receitas", "Despesas"}}}
	for _, m := range r.Charts.MonthlyFlow {
		monthly.Rows = append(monthly.Rows, []string{m.Label, num(m.Income), num(m.Expenses)})
	}

	recs := Sheet{Name: "Recomendações", Rows: [][]string{{"Recomendação"}}}
	for _, rec := range r.Recommendations {
		recs.Rows = append(recs.Rows, []string{rec})
	}

	return []Sheet{summary, categories, monthly, recs}
}

// CSV renders one sheet as comma-separated values.
func CSV(s Sheet) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(s.Rows); err != nil {
		return "", fmt.Errorf("report.CSV: sheet %q: %w", s.Name, err)
	}
	return buf.String(), nil
}
