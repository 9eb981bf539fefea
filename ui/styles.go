package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fieldreport/model"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// User message style
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// Assistant message style
	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// System/timestamp style
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	UnreadStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)
)

// statusStyle colors a status banner by its icon.
func statusStyle(icon model.StatusIcon) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch icon {
	case model.IconSuccess:
		return style.Foreground(successColor)
	case model.IconError:
		return style.Foreground(dangerColor)
	case model.IconWarning:
		return style.Foreground(warningColor)
	default:
		return style.Foreground(accentColor)
	}
}

func statusSymbol(icon model.StatusIcon) string {
	switch icon {
	case model.IconSuccess:
		return "✔"
	case model.IconError:
		return "✖"
	case model.IconWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

// FormatFooter formats a footer string with alternating keys and descriptions.
// Usage: FormatFooter("Enter", "Enviar", "Esc", "Salir")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}
