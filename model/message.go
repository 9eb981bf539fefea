package model

import (
	"encoding/json"
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	// SenderTool only appears in provider transcripts, never in the UI log.
	SenderTool Sender = "tool"
)

// Message represents one turn in the conversation.
//
// For user messages the content lives in Text. For assistant messages it is
// Response, or Raw when the provider text could not be parsed yet.
type Message struct {
	Sender   Sender             `json:"sender"`
	Text     string             `json:"text,omitempty"`
	Response *AssistantResponse `json:"response,omitempty"`
	Raw      string             `json:"raw,omitempty"`

	// PendingToolCalls are the calls the provider issued in this turn.
	// Stateless providers need them to replay their own history.
	PendingToolCalls []ToolCall `json:"pending_tool_calls,omitempty"`

	// ToolResults answer the PendingToolCalls of the previous message.
	ToolResults []ToolResult `json:"tool_results,omitempty"`

	// CorrelationID locates a placeholder that is replaced once an
	// asynchronous operation completes.
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// UserMessage creates a user turn.
func UserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text, Timestamp: time.Now()}
}

// AssistantMessage creates an assistant turn carrying a canonical response.
func AssistantMessage(resp AssistantResponse) Message {
	return Message{Sender: SenderAssistant, Response: &resp, Timestamp: time.Now()}
}

// HasForm reports whether the message is an assistant turn carrying a form.
func (m Message) HasForm() bool {
	return m.Sender == SenderAssistant && m.Response != nil && len(m.Response.Form) > 0
}

// ProviderText returns the message content as plain text for replaying it to
// an LLM. Assistant responses are re-encoded as the JSON the model produced.
func (m Message) ProviderText() string {
	switch {
	case m.Sender == SenderUser:
		return m.Text
	case m.Response != nil:
		data, err := json.Marshal(m.Response)
		if err != nil {
			return m.Response.DisplayText
		}
		return string(data)
	case m.Raw != "":
		return m.Raw
	default:
		return m.Text
	}
}

// ToolCall is a provider-agnostic tool invocation.
// ID is opaque and must be sent back to the provider exactly as received.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of executing one ToolCall.
// Payload is always JSON-serializable; failures are {"error": "..."}.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Payload    any    `json:"payload"`
}

// ErrorPayload builds the in-band error payload used by tool results.
func ErrorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// IsError reports whether the payload is an in-band error. Agent envelopes
// carry "error": false on success, so only true or a message counts.
func (r ToolResult) IsError() bool {
	m, ok := r.Payload.(map[string]any)
	if !ok {
		return false
	}
	switch v := m["error"].(type) {
	case bool:
		return v
	case string:
		return v != ""
	default:
		return false
	}
}

// PayloadMap returns the payload as an object, wrapping non-object payloads
// under a "result" key. Gemini and Anthropic expect object-shaped responses.
func (r ToolResult) PayloadMap() map[string]any {
	if m, ok := r.Payload.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": r.Payload}
}

// PayloadJSON encodes the payload for providers that take tool output as text.
func (r ToolResult) PayloadJSON() string {
	data, err := json.Marshal(r.Payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload(err.Error()))
	}
	return string(data)
}
