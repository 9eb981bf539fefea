package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM backends behind one send/continue contract.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations import model, and the chat
// orchestrator depends only on this interface.
//
// Stateful backends keep their own session and ignore history once the
// session exists. Stateless backends rebuild the full transcript from
// history on every call.
type Provider interface {
	// Send starts a turn with a new user prompt. history holds the prior
	// conversation, oldest first, without the new prompt.
	Send(ctx context.Context, history []Message, prompt string, tools []mcptypes.Tool, systemInstruction string) (*Turn, error)

	// Continue answers the tool calls of the previous Turn. history holds
	// the conversation up to and including the assistant message whose
	// PendingToolCalls the results answer.
	Continue(ctx context.Context, history []Message, results []ToolResult) (*Turn, error)

	// Reset drops any session state so the next Send starts fresh.
	Reset()

	// Name identifies the backend for logs.
	Name() string
}

// Turn is one provider response: either final text or tool calls.
type Turn struct {
	FinalText string
	ToolCalls []ToolCall
}

// IsFinal reports whether the provider produced a terminal answer.
func (t *Turn) IsFinal() bool {
	return len(t.ToolCalls) == 0
}

// Mode selects which tool surface and system instruction are in play.
type Mode string

const (
	// ModeDirect exposes database operations as tools.
	ModeDirect Mode = "direct"
	// ModeAgent exposes only the external agent as tools.
	ModeAgent Mode = "agent"
)

// ParseMode maps a config string onto a Mode, defaulting to ModeDirect.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeAgent, "agent-orchestrated", "agente":
		return ModeAgent
	default:
		return ModeDirect
	}
}
