package visuals

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"otc-analytics/internal/codes"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/stats"
)

// ReportOptions controls what a rendered report carries.
type ReportOptions struct {
	Title string
	// Charts embeds Mermaid charts in Markdown output. HTML always carries them.
	Charts bool
	// MaxOrders bounds the order table; 0 keeps every order.
	MaxOrders int
}

func (o ReportOptions) title() string {
	if o.Title == "" {
		return "Análise do Ciclo de Pedidos"
	}
	return o.Title
}

// Charts returns every non-empty chart of a summary keyed by a stable name.
func Charts(sum pipeline.Summary) []NamedChart {
	var out []NamedChart
	add := func(name, chart string) {
		if chart != "" {
			out = append(out, NamedChart{Name: name, Mermaid: chart})
		}
	}

	add("funnel", GenerateFunnelChart(sum))
	add("durations", GenerateBaselineChart(sum))
	for _, ss := range sum.Stages {
		add("stage_"+ss.Stage.String(), GenerateStagePie(ss))
	}
	if situations, ok := sum.Situations[codes.OrderSituation]; ok {
		add("order_situation", GeneratePie("Situação dos Pedidos", situations))
	}
	add("top_products", GeneratePie("Produtos Mais Frequentes", sum.TopProducts))
	add("products_per_invoice", GenerateCountChart("Produtos por Nota Fiscal", "Notas", sum.ProductsPerInvoice))
	add("pfa_blocks", GenerateCountChart("Bloqueios PFA por Data", "Pedidos", sum.PFABlocksByDate))
	return out
}

// NamedChart is one rendered Mermaid chart.
type NamedChart struct {
	Name    string `json:"name"`
	Mermaid string `json:"mermaid"`
}

// Body strips the Markdown fence from the chart source.
func (c NamedChart) Body() string {
	body := strings.TrimPrefix(c.Mermaid, "```mermaid\n")
	return strings.TrimSuffix(body, "```")
}

// Markdown renders a run as a Markdown report.
func Markdown(res *pipeline.Result, opts ReportOptions) string {
	sum := res.Summary

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", opts.title()))
	if sum.Empty {
		sb.WriteString("Nenhum pedido encontrado para os filtros informados.\n")
		return sb.String()
	}

	// 1. Overview
	sb.WriteString("## Visão Geral\n\n")
	sb.WriteString(fmt.Sprintf("- Pedidos: %d (%d registros)\n", sum.TotalOrders, sum.TotalRecords))
	sb.WriteString(fmt.Sprintf("- Concluídos até o título: %s (%s)\n", pct(sum.CompletionPct), sum.CompletionAlert))
	sb.WriteString(fmt.Sprintf("- Pedidos bloqueados: %d\n\n", sum.BlockedOrders))

	// 2. Milestones
	sb.WriteString("## Marcos\n\n")
	sb.WriteString("| Marco | Concluídos | Pendentes | % |\n|---|---:|---:|---:|\n")
	for _, ms := range sum.Milestones {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", ms.Milestone.Label(), ms.Completed, ms.Pending, pct(ms.Percent)))
	}
	sb.WriteString("\n")

	// 3. Stages
	sb.WriteString("## Etapas\n\n")
	sb.WriteString("| Etapa | Dentro | Acima | Insuficiente | Mediana (h) | Média da Linha de Base (h) | Alerta |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---:|---|\n")
	for _, ss := range sum.Stages {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s | %s |\n",
			ss.Stage.Label(),
			ss.Counts[stats.WithinBaseline],
			ss.Counts[stats.ExceedsBaseline],
			ss.Counts[stats.InsufficientData],
			hours(ss.Median),
			hours(ss.MeanBaseline),
			ss.Alert))
	}
	sb.WriteString("\n")

	// 4. Branches
	if len(sum.Branches) > 1 {
		sb.WriteString("## Filiais\n\n")
		sb.WriteString("| Filial | Pedidos | Títulos Registrados |\n|---|---:|---:|\n")
		for _, bs := range sum.Branches {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", branchLabel(bs.Branch), bs.Orders, bs.Completed[orders.TitleRegistered]))
		}
		sb.WriteString("\n")
	}

	// 5. Charts
	if opts.Charts {
		sb.WriteString("## Gráficos\n\n")
		for _, c := range Charts(sum) {
			sb.WriteString(c.Mermaid)
			sb.WriteString("\n\n")
		}
	}

	// 6. Orders
	rows := limit(res.Orders, opts.MaxOrders)
	sb.WriteString("## Pedidos\n\n")
	sb.WriteString("| Filial | Pedido | Situação |")
	for _, s := range orders.Stages {
		sb.WriteString(fmt.Sprintf(" %s |", shortStage(s)))
	}
	sb.WriteString("\n|---|---|---|")
	sb.WriteString(strings.Repeat("---|", orders.NumStages))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |", branchLabel(row.Branch), row.OrderNumber, row.Situations[codes.OrderSituation]))
		for _, sv := range row.Stages {
			sb.WriteString(fmt.Sprintf(" %s |", stageCell(sv)))
		}
		sb.WriteString("\n")
	}
	if len(rows) < len(res.Orders) {
		sb.WriteString(fmt.Sprintf("\n_%d de %d pedidos exibidos._\n", len(rows), len(res.Orders)))
	}
	return sb.String()
}

// HTML renders a run as a self-contained page; charts load Mermaid from a CDN.
func HTML(w io.Writer, res *pipeline.Result, opts ReportOptions) error {
	data := struct {
		Title   string
		RunID   string
		Summary pipeline.Summary
		Charts  []NamedChart
		Orders  []pipeline.OrderRow
		Hidden  int
	}{
		Title:   opts.title(),
		RunID:   res.RunID,
		Summary: res.Summary,
		Charts:  Charts(res.Summary),
		Orders:  limit(res.Orders, opts.MaxOrders),
	}
	data.Hidden = len(res.Orders) - len(data.Orders)

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"hours":     hours,
	"pct":       pct,
	"branch":    branchLabel,
	"stageCell": stageCell,
	"short":     shortStage,
	"stages":    func() []orders.Stage { return orders.Stages },
	"count":     func(ss pipeline.StageSummary, c string) int { return ss.Counts[stats.Classification(c)] },
	"situation": func(r pipeline.OrderRow) string { return r.Situations[codes.OrderSituation] },
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ccc; padding: .3rem .6rem; text-align: left; }
.warning { color: #b45309; font-weight: bold; }
.info { color: #1d4ed8; }
.charts { display: flex; flex-wrap: wrap; gap: 1rem; }
</style>
<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
</head>
<body>
<h1>{{.Title}}</h1>
<p><small>Execução {{.RunID}}</small></p>
{{if .Summary.Empty}}<p>Nenhum pedido encontrado para os filtros informados.</p>{{else}}
<h2>Visão Geral</h2>
<ul>
<li>Pedidos: {{.Summary.TotalOrders}} ({{.Summary.TotalRecords}} registros)</li>
<li class="{{.Summary.CompletionAlert}}">Concluídos até o título: {{pct .Summary.CompletionPct}}</li>
<li>Pedidos bloqueados: {{.Summary.BlockedOrders}}</li>
</ul>
<h2>Etapas</h2>
<table>
<tr><th>Etapa</th><th>Dentro</th><th>Acima</th><th>Insuficiente</th><th>Mediana (h)</th><th>Média da Linha de Base (h)</th></tr>
{{range .Summary.Stages}}<tr class="{{.Alert}}"><td>{{.Stage.Label}}</td><td>{{count . "within_baseline"}}</td><td>{{count . "exceeds_baseline"}}</td><td>{{count . "insufficient_data"}}</td><td>{{hours .Median}}</td><td>{{hours .MeanBaseline}}</td></tr>
{{end}}</table>
<div class="charts">
{{range .Charts}}<pre class="mermaid">{{.Body}}</pre>
{{end}}</div>
<h2>Pedidos</h2>
<table>
<tr><th>Filial</th><th>Pedido</th><th>Situação</th>{{range stages}}<th>{{short .}}</th>{{end}}</tr>
{{range .Orders}}<tr><td>{{branch .Branch}}</td><td>{{.OrderNumber}}</td><td>{{situation .}}</td>{{range .Stages}}<td>{{stageCell .}}</td>{{end}}</tr>
{{end}}</table>
{{if .Hidden}}<p><small>{{.Hidden}} pedidos omitidos.</small></p>{{end}}
{{end}}
</body>
</html>
`))

func stageCell(sv pipeline.StageView) string {
	if sv.Classification == stats.InsufficientData {
		return sv.Classification.Label()
	}
	return fmt.Sprintf("%s (%sh / %sh)", sv.Classification.Label(), hours(sv.Duration), hours(sv.Baseline))
}

func hours(v *float64) string {
	if v == nil {
		return "n/d"
	}
	return fmt.Sprintf("%.1f", *v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func branchLabel(b string) string {
	if b == "" {
		return "(sem filial)"
	}
	return b
}

func limit(rows []pipeline.OrderRow, max int) []pipeline.OrderRow {
	if max > 0 && len(rows) > max {
		return rows[:max]
	}
	return rows
}
