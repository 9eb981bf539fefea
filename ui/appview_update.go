package ui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"fieldreport/chat"
	"fieldreport/config"
	"fieldreport/model"
)

type snapshotMsg chat.Snapshot

// submitDoneMsg reports whether the orchestrator accepted a submission.
type submitDoneMsg struct {
	accepted bool
}

type noticeMsg string

const busyNotice = "Espera a que termine la respuesta anterior."

// waitForSnapshot blocks until the orchestrator publishes. A closed channel
// ends the subscription.
func waitForSnapshot(ch <-chan chat.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func (a AppView) submit(sub model.Submission) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{accepted: a.conv.Submit(a.ctx, sub)}
	}
}

func (a AppView) submitForm() tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{accepted: a.conv.SubmitActiveForm(a.ctx)}
	}
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		// header + blank line + textarea (3) + status bar (2)
		viewportHeight := max(a.height-7, 3)
		a.viewport.Width = a.width
		a.viewport.Height = viewportHeight
		a.textarea.SetWidth(a.width)
		a.ready = true
		a.updateViewportContent(true)
		return a, nil

	case snapshotMsg:
		a.snap = chat.Snapshot(msg)
		a.updateViewportContent(true)
		return a, waitForSnapshot(a.snaps)

	case submitDoneMsg:
		if !msg.accepted {
			a.notice = busyNotice
		}
		return a, nil

	case noticeMsg:
		a.notice = string(msg)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		if a.snap.IsLoading {
			a.updateViewportContent(false)
		}
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "alt+q":
			a.cancel()
			return a, tea.Quit

		case "esc":
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
			a.notice = ""
			return a, nil

		case "alt+o":
			a.open = !a.open
			a.conv.SetOpen(a.open)
			return a, nil

		case "alt+y":
			return a, a.copyLastResponse()

		case "pgdown":
			a.viewport.PageDown()
			return a, nil

		case "pgup":
			a.viewport.PageUp()
			return a, nil

		case "enter":
			if !a.open {
				return a, nil
			}
			input := strings.TrimSpace(a.textarea.Value())
			if input == "" {
				return a, nil
			}
			a.textarea.Reset()
			a.notice = ""
			return a, a.handleInput(input)
		}
	}

	if a.open && !a.showHelp {
		var cmd tea.Cmd
		a.textarea, cmd = a.textarea.Update(msg)
		cmds = append(cmds, cmd)
		a.viewport, cmd = a.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// handleInput runs a slash command or sends the text as a new turn.
func (a *AppView) handleInput(input string) tea.Cmd {
	cmd, ok := ParseCommand(input)
	if !ok {
		return a.submit(model.TextSubmission(input))
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Command /%s %q", cmd.Name, cmd.Args)
	}

	switch cmd.Name {
	case "help":
		a.showHelp = true
		return nil

	case "set":
		name, value, err := ParseAssignment(cmd.Args, a.snap.ActiveForm)
		if err == nil {
			err = a.conv.SetFormValue(name, value)
		}
		if err != nil {
			a.notice = err.Error()
		}
		return nil

	case "submit":
		if a.snap.ActiveForm == nil {
			a.notice = "No hay ningún formulario activo."
			return nil
		}
		return a.submitForm()

	case "mode":
		var mode model.Mode
		switch strings.ToLower(cmd.Args) {
		case "directo", "direct":
			mode = model.ModeDirect
		case "agente", "agent":
			mode = model.ModeAgent
		default:
			a.notice = "Uso: /modo directo|agente"
			return nil
		}
		if !a.conv.SetMode(mode) {
			a.notice = busyNotice
		}
		return nil

	case "action":
		resp := lastResponse(a.snap.Messages)
		if resp == nil {
			a.notice = "No hay acciones disponibles."
			return nil
		}
		i, err := ParseIndex(cmd.Args, len(resp.Actions))
		if err != nil {
			a.notice = err.Error()
			return nil
		}
		return a.submit(model.TextSubmission(resp.Actions[i].Prompt))

	case "suggestion":
		resp := lastResponse(a.snap.Messages)
		if resp == nil {
			a.notice = "No hay sugerencias disponibles."
			return nil
		}
		i, err := ParseIndex(cmd.Args, len(resp.Suggestions))
		if err != nil {
			a.notice = err.Error()
			return nil
		}
		return a.submit(model.TextSubmission(resp.Suggestions[i]))

	case "copy":
		return a.copyLastResponse()
	}
	return nil
}

func (a AppView) copyLastResponse() tea.Cmd {
	resp := lastResponse(a.snap.Messages)
	if resp == nil {
		return nil
	}
	text := resp.DisplayText
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return noticeMsg("No se pudo copiar: " + err.Error())
		}
		return noticeMsg("Respuesta copiada al portapapeles.")
	}
}
