package provider

import (
	"context"
	"strings"
	"testing"

	"fieldreport/model"
	"fieldreport/tools"
)

const ollamaToolCallBody = `{"model":"qwen2.5:7b","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"query_agent","arguments":{"consulta":"plantas de ACME"}}}]},"done":true}`

const ollamaFinalBody = `{"model":"qwen2.5:7b","created_at":"2025-01-01T00:00:01Z","message":{"role":"assistant","content":"{\"displayText\":\"ACME tiene 2 plantas.\"}"},"done":true}`

func TestOllamaProviderToolRound(t *testing.T) {
	rec, srv := newScriptedServer(t, ollamaToolCallBody, ollamaFinalBody)

	p, err := NewOllamaProvider(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	turn, err := p.Send(ctx, nil, "Plantas de ACME", tools.AgentTools(), "sistema")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(turn.ToolCalls) != 1 {
		t.Fatalf("Send() = %+v, want one tool call", turn)
	}
	call := turn.ToolCalls[0]
	if !isSynthetic(call.ID) || call.Arguments["consulta"] != "plantas de ACME" {
		t.Errorf("tool call = %+v", call)
	}

	first := rec.request(0)
	if first.Get("stream").Bool() {
		t.Error("request asked for streaming")
	}
	if got := first.Get("tools.#").Int(); got != 2 {
		t.Errorf("sent %d tools, want 2", got)
	}

	history := []model.Message{
		model.UserMessage("Plantas de ACME"),
		{Sender: model.SenderAssistant, PendingToolCalls: turn.ToolCalls},
	}
	results := []model.ToolResult{{ToolCallID: call.ID, Name: call.Name, Payload: map[string]any{"data": []any{}}}}

	turn, err = p.Continue(ctx, history, results)
	if err != nil {
		t.Fatalf("Continue() error = %v", err)
	}
	if !strings.Contains(turn.FinalText, "2 plantas") {
		t.Errorf("FinalText = %q", turn.FinalText)
	}

	second := rec.request(1)
	roles := []string{}
	for _, m := range second.Get("messages").Array() {
		roles = append(roles, m.Get("role").String())
	}
	if got := strings.Join(roles, ","); got != "system,user,assistant,tool" {
		t.Errorf("roles = %s", got)
	}
	if got := second.Get("messages.2.tool_calls.0.function.name").String(); got != "query_agent" {
		t.Errorf("replayed tool call = %q", got)
	}
}

func TestOllamaProviderEmptyReplyIsMalformed(t *testing.T) {
	_, srv := newScriptedServer(t, `{"model":"m","message":{"role":"assistant","content":"  "},"done":true}`)

	p, err := NewOllamaProvider(srv.URL, "m")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Send(context.Background(), nil, "hola", nil, ""); err == nil {
		t.Error("Send() error = nil, want malformed payload")
	}
}
