// Package ui is the terminal front end: a Bubble Tea chat panel that renders
// the orchestrator's snapshots and feeds user input back to it.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fieldreport/chat"
	"fieldreport/model"
)

// Conversation is the part of the orchestrator the UI drives.
type Conversation interface {
	Submit(ctx context.Context, sub model.Submission) bool
	SubmitActiveForm(ctx context.Context) bool
	SetFormValue(name string, value any) error
	SetOpen(open bool)
	ClearUnread()
	SetMode(mode model.Mode) bool
	Subscribe() (<-chan chat.Snapshot, func())
}

type AppView struct {
	conv   Conversation
	ctx    context.Context
	title  string
	snap   chat.Snapshot
	snaps  <-chan chat.Snapshot
	cancel func()

	// UI Components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	// open mirrors the orchestrator's panel state; a closed panel only shows
	// the header with the unread badge.
	open     bool
	showHelp bool
	notice   string

	// Rendered assistant messages keyed by position, timestamp and width.
	rendered map[string]string
}

// NewAppView subscribes to conv. title names the active provider in the
// header.
func NewAppView(ctx context.Context, conv Conversation, title string) AppView {
	ta := textarea.New()
	ta.Placeholder = "Escribe tu consulta o /ayuda para ver los comandos..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter for newline, Enter sends
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	snaps, cancel := conv.Subscribe()
	conv.SetOpen(true)

	return AppView{
		conv:           conv,
		ctx:            ctx,
		title:          title,
		snaps:          snaps,
		cancel:         cancel,
		viewport:       viewport.New(0, 0),
		textarea:       ta,
		loadingSpinner: sp,
		open:           true,
		rendered:       make(map[string]string),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.loadingSpinner.Tick,
		waitForSnapshot(a.snaps),
	)
}

func (a AppView) View() string {
	if !a.ready {
		return "Cargando..."
	}

	header := a.renderHeader()
	if !a.open {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			DimStyle.Render("Panel cerrado. Alt+O para abrirlo."),
		)
	}

	if a.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, header, "", renderHelp())
	}

	status := StatusStyle.Render(FormatFooter(
		"Enter", "Enviar",
		"Alt+Enter", "Nueva línea",
		"Alt+Y", "Copiar",
		"Alt+O", "Cerrar panel",
		"Alt+Q", "Salir",
	))
	if a.notice != "" {
		status = HighlightStyle.Render(a.notice) + "\n" + status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		a.viewport.View(),
		a.textarea.View(),
		status,
	)
}

func (a AppView) renderHeader() string {
	mode := "directo"
	if a.snap.Mode == model.ModeAgent {
		mode = "agente"
	}
	header := TitleStyle.Render("Asistente de informes") +
		DimStyle.Render(fmt.Sprintf(" | %s | modo %s", a.title, mode))
	if a.snap.IsLoading {
		header += " " + a.loadingSpinner.View()
	}
	if a.snap.HasUnreadMessage {
		header += " " + UnreadStyle.Render("● nuevo mensaje")
	}
	return header
}

func renderHelp() string {
	blue := lipgloss.NewStyle().Foreground(accentColor)
	return lipgloss.JoinVertical(lipgloss.Left,
		blue.Render("## Comandos"),
		"• /set campo=valor    Rellena un campo del formulario activo",
		"• /enviar             Envía el formulario activo",
		"• /accion N           Ejecuta la acción N de la última respuesta",
		"• /sugerencia N       Envía la sugerencia N",
		"• /modo directo|agente Cambia el modo de trabajo",
		"• /copiar             Copia la última respuesta",
		"",
		blue.Render("## Teclas"),
		"• Enter               Enviar mensaje",
		"• Alt+Enter           Nueva línea",
		"• Alt+O               Abrir o cerrar el panel",
		"• PgUp/PgDn           Desplazar la conversación",
		"• Alt+Q / Ctrl+C      Salir",
		"",
		DimStyle.Render("Pulsa Esc para volver."),
	)
}

// updateViewportContent renders the message log into the viewport.
func (a *AppView) updateViewportContent(gotoBottom bool) {
	if len(a.snap.Messages) == 0 {
		a.viewport.SetContent(DimStyle.Render("Aún no hay mensajes. Pregunta por empresas, plantas, máquinas o informes."))
		return
	}

	width := max(a.width-4, 20)
	var content strings.Builder
	for i, msg := range a.snap.Messages {
		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

		if msg.Sender == model.SenderUser {
			content.WriteString(formatUserMessage(timestamp, UserStyle.Render("Tú"), msg.Text))
			continue
		}

		body := a.renderAssistant(i, msg, width)
		if msg.CorrelationID != "" {
			body = a.loadingSpinner.View() + " " + body
		}
		content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Asistente"), body))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) renderAssistant(index int, msg model.Message, width int) string {
	if msg.Response == nil {
		return msg.Raw
	}

	// The active form changes as the user types, so its message is not cached.
	var form *model.ActiveForm
	if f := a.snap.ActiveForm; f != nil && f.OriginIndex == index {
		form = f
	}
	if form != nil {
		return RenderResponse(*msg.Response, form, width)
	}

	cacheKey := fmt.Sprintf("%d/%d/%d", index, msg.Timestamp.UnixNano(), width)
	if r, ok := a.rendered[cacheKey]; ok {
		return r
	}
	r := RenderResponse(*msg.Response, nil, width)
	a.rendered[cacheKey] = r
	return r
}
