package visuals

import (
	"fmt"
	"math"
	"strings"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/stats"
)

// GenerateFunnelChart creates a Mermaid bar chart of the completion percentage per milestone.
func GenerateFunnelChart(sum pipeline.Summary) string {
	if sum.Empty || len(sum.Milestones) == 0 {
		return ""
	}

	var labels []string
	var values []string
	for _, ms := range sum.Milestones {
		labels = append(labels, quote(ms.Milestone.Label()))
		values = append(values, fmt.Sprintf("%.1f", ms.Percent))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Funil de Marcos (% Concluído)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"% Pedidos\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateStagePie creates a Mermaid pie chart of the classifications of one stage.
func GenerateStagePie(ss pipeline.StageSummary) string {
	total := 0
	for _, c := range stats.Classifications {
		total += ss.Counts[c]
	}
	if total == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", sanitize(ss.Stage.Label())))
	for _, c := range stats.Classifications {
		if n := ss.Counts[c]; n > 0 {
			sb.WriteString(fmt.Sprintf("    %s : %d\n", quote(c.Label()), n))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateBaselineChart creates a Mermaid chart with the median duration per stage
// as bars and the mean baseline as a line.
func GenerateBaselineChart(sum pipeline.Summary) string {
	if sum.Empty || len(sum.Stages) == 0 {
		return ""
	}

	var labels []string
	var medians []string
	var baselines []string
	maxVal := 0.0
	hasData := false
	for _, ss := range sum.Stages {
		labels = append(labels, quote(shortStage(ss.Stage)))
		median, baseline := deref(ss.Median), deref(ss.MeanBaseline)
		if ss.Median != nil || ss.MeanBaseline != nil {
			hasData = true
		}
		medians = append(medians, fmt.Sprintf("%.1f", median))
		baselines = append(baselines, fmt.Sprintf("%.1f", baseline))
		maxVal = math.Max(maxVal, math.Max(median, baseline))
	}
	if !hasData {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Duração por Etapa (Horas)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Horas\" 0 --> %d\n", int(math.Ceil(math.Max(1, maxVal*1.2)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(medians, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(baselines, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GeneratePie creates a Mermaid pie chart from grouped counts.
func GeneratePie(title string, counts []pipeline.Count) string {
	if len(counts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", sanitize(title)))
	for _, c := range counts {
		sb.WriteString(fmt.Sprintf("    %s : %d\n", quote(c.Label), c.Count))
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateCountChart creates a Mermaid bar chart from grouped counts, keeping their order.
func GenerateCountChart(title, yLabel string, counts []pipeline.Count) string {
	if len(counts) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0
	for _, c := range counts {
		labels = append(labels, quote(c.Label))
		values = append(values, fmt.Sprintf("%d", c.Count))
		if c.Count > maxVal {
			maxVal = c.Count
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", quote(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis %s 0 --> %d\n", quote(yLabel), maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// shortStage keeps the x-axis readable: "Pedido Criado → Remessa Associada" becomes "Pedido→Remessa".
func shortStage(s orders.Stage) string {
	first := func(label string) string {
		if i := strings.IndexByte(label, ' '); i > 0 {
			return label[:i]
		}
		return label
	}
	return first(s.From().Label()) + "→" + first(s.To().Label())
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func quote(s string) string {
	return "\"" + sanitize(s) + "\""
}

// sanitize strips characters that break Mermaid label parsing.
func sanitize(s string) string {
	return strings.NewReplacer("\"", "'", "\n", " ", "\r", " ", ":", " ").Replace(s)
}
