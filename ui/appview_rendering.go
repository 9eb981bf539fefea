package ui

import (
	"fmt"
	"math"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"fieldreport/model"
)

const (
	maxCellWidth = 28
	maxBarWidth  = 30
)

// renderMarkdown renders displayText for the terminal. Autolinks stay off so
// the terminal handles URLs itself.
func renderMarkdown(text string, width int) string {
	if width < 20 {
		width = 20
	}
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width, 0)
	rendered := gomarkdown.Render(p.Parse([]byte(text)), r)
	return strings.TrimRight(string(rendered), "\n")
}

// RenderResponse renders every section of an assistant response. form, when
// it belongs to this message, supplies the values typed so far.
func RenderResponse(resp model.AssistantResponse, form *model.ActiveForm, width int) string {
	var parts []string

	if s := resp.StatusDisplay; s != nil {
		banner := statusStyle(s.Icon).Render(statusSymbol(s.Icon) + " " + s.Title)
		if s.Message != "" && s.Message != resp.DisplayText {
			banner += "\n" + DimStyle.Render(s.Message)
		}
		parts = append(parts, banner)
	}

	parts = append(parts, renderMarkdown(resp.DisplayText, width))

	if resp.Table != nil {
		parts = append(parts, renderTable(resp.Table))
	}
	if resp.Chart != nil {
		parts = append(parts, renderChart(resp.Chart))
	}
	if len(resp.Form) > 0 {
		parts = append(parts, renderForm(resp.Form, form))
	}
	if len(resp.Actions) > 0 {
		lines := []string{TitleStyle.Render("Acciones")}
		for i, a := range resp.Actions {
			lines = append(lines, fmt.Sprintf("  %s %s", HighlightStyle.Render(fmt.Sprintf("[%d]", i+1)), a.Label))
		}
		lines = append(lines, DimStyle.Render("  /accion N para ejecutar"))
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if len(resp.Suggestions) > 0 {
		lines := []string{TitleStyle.Render("Sugerencias")}
		for i, s := range resp.Suggestions {
			lines = append(lines, fmt.Sprintf("  %s %s", DimStyle.Render(fmt.Sprintf("(%d)", i+1)), s))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

func renderTable(t *model.Table) string {
	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = truncateCell(h)
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = truncateCell(c)
		}
		rows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return tbl.Render()
}

// truncateCell keeps a cell on one line and within maxCellWidth columns.
func truncateCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, maxCellWidth, "…")
}

// renderChart draws a chart as horizontal bars scaled to the largest value.
// Pie charts also show each share as a percentage.
func renderChart(c *model.Chart) string {
	labelWidth := 0
	maxValue := 0.0
	total := 0.0
	for _, p := range c.Data {
		labelWidth = max(labelWidth, runewidth.StringWidth(truncateCell(p.Name)))
		maxValue = max(maxValue, math.Abs(p.Value))
		total += p.Value
	}

	bar := lipgloss.NewStyle().Foreground(accentColor)
	var lines []string
	for _, p := range c.Data {
		n := 0
		if maxValue > 0 {
			n = int(math.Round(math.Abs(p.Value) / maxValue * maxBarWidth))
		}
		label := runewidth.FillRight(truncateCell(p.Name), labelWidth)
		value := formatNumber(p.Value)
		if c.Type == model.ChartPie && total != 0 {
			value += fmt.Sprintf(" (%.1f%%)", p.Value/total*100)
		}
		lines = append(lines, fmt.Sprintf("%s │%s %s", label, bar.Render(strings.Repeat("█", n)), value))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func renderForm(fields model.Form, form *model.ActiveForm) string {
	lines := []string{TitleStyle.Render("Formulario")}
	for _, f := range fields {
		var value string
		if form != nil {
			value = formatFormValue(form.Values[f.Name])
		}
		if value == "" {
			value = DimStyle.Render(placeholderFor(f))
		}
		lines = append(lines, fmt.Sprintf("  %s %s: %s", DimStyle.Render(f.Name), f.Label, value))
		if f.Type == model.FieldSelect && len(f.Options) > 0 {
			lines = append(lines, DimStyle.Render("      opciones: "+strings.Join(f.Options, " | ")))
		}
	}
	if form != nil {
		lines = append(lines, DimStyle.Render("  /set campo=valor para rellenar, /enviar para enviar"))
	}
	return strings.Join(lines, "\n")
}

func formatFormValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "sí"
		}
		return "no"
	default:
		return fmt.Sprint(val)
	}
}

func placeholderFor(f model.FormField) string {
	switch {
	case f.Placeholder != "":
		return f.Placeholder
	case f.Type == model.FieldCheckbox:
		return "no"
	default:
		return "(vacío)"
	}
}

// formatUserMessage draws a user turn behind a vertical bar.
func formatUserMessage(timestamp, role, content string) string {
	bar := UserStyle.Render("┃")

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, role))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")
	return result.String()
}
