package visuals

import (
	"fmt"
	"math"
	"strings"

	"emissions-mcp/internal/emissions"
)

// maxPoints keeps text charts readable in an assistant context.
const maxPoints = 60

// GenerateEmissionsChart creates a Mermaid xychart-beta with one bar per
// bucket (total tonnes) and a line for the primary unit share.
func GenerateEmissionsChart(title string, series []emissions.DailyEmission) string {
	if len(series) == 0 {
		return ""
	}
	series = series[:min(len(series), maxPoints)]

	var labels []string
	var totals []string
	var primary []string
	maxVal := 0.0

	for _, d := range series {
		labels = append(labels, fmt.Sprintf("\"%s\"", d.Unit.GenerateLabel(d.Date)))
		total := d.Bundle.Total()
		totals = append(totals, fmt.Sprintf("%.2f", total))
		primary = append(primary, fmt.Sprintf("%.2f", d.Bundle.PrimaryUnit))
		maxVal = math.Max(maxVal, total)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"CO2 (tonnes)\" 0 --> %d\n", yMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(totals, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(primary, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateReductionsChart creates a Mermaid bar chart of the daily total
// reduction across all initiatives. Days without activity plot as zero.
func GenerateReductionsChart(entries []emissions.ReductionEntry) string {
	if len(entries) == 0 {
		return ""
	}
	entries = entries[:min(len(entries), maxPoints)]

	var labels []string
	var values []string
	maxVal := 0.0

	for _, e := range entries {
		sum := 0.0
		for _, in := range e.Initiatives {
			sum += in.TotalValue
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", emissions.Day.GenerateLabel(e.Date)))
		values = append(values, fmt.Sprintf("%.2f", sum))
		maxVal = math.Max(maxVal, sum)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Emission Reductions per Day\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"CO2 avoided (tonnes)\" 0 --> %d\n", yMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// yMax leaves 20% headroom above the largest value.
func yMax(v float64) int {
	return int(math.Ceil(math.Max(1, v*1.2)))
}
