package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"

	"fieldreport/model"
	"fieldreport/provider/testutil"
)

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"object", `{"table":"Empresa","limit":5}`, 2, false},
		{"null", `null`, 0, false},
		{"array", `[1,2]`, 0, true},
		{"garbage", `{table:`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolArguments(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Errorf("error = %v, want ErrMalformedPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil || len(got) != tt.wantLen {
				t.Errorf("got %v, want %d keys", got, tt.wantLen)
			}
		})
	}
}

func TestEncodeToolArguments(t *testing.T) {
	if got := EncodeToolArguments(nil); got != "{}" {
		t.Errorf("EncodeToolArguments(nil) = %q", got)
	}
	if got := EncodeToolArguments(map[string]any{"table": "Planta"}); got != `{"table":"Planta"}` {
		t.Errorf("EncodeToolArguments() = %q", got)
	}
}

func TestConvertToProviderToolCalls(t *testing.T) {
	if got := ConvertToProviderToolCalls(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	calls := ConvertToProviderToolCalls([]api.ToolCall{
		{Function: api.ToolCallFunction{Name: "query_database", Arguments: map[string]any{"table": "Planta"}}},
		{Function: api.ToolCallFunction{Name: "describe_table"}},
	})
	if len(calls) != 2 {
		t.Fatalf("got %d calls", len(calls))
	}
	if calls[0].ID == calls[1].ID {
		t.Error("synthesized IDs are not unique")
	}
	for _, c := range calls {
		if !isSynthetic(c.ID) {
			t.Errorf("ID %q is not marked synthetic", c.ID)
		}
		if c.Arguments == nil {
			t.Errorf("%s has nil arguments", c.Name)
		}
	}
	if calls[0].Arguments["table"] != "Planta" {
		t.Errorf("arguments = %v", calls[0].Arguments)
	}

	back := ConvertFromProviderToolCalls(calls)
	if back[0].Function.Name != "query_database" {
		t.Errorf("round trip name = %q", back[0].Function.Name)
	}
}

func TestTranscriptConversions(t *testing.T) {
	history := testutil.ToolTranscript()

	t.Run("openai", func(t *testing.T) {
		msgs := toOpenAIMessages("sistema", history)
		// system + user + assistant(tool_calls) + tool + assistant + user
		if len(msgs) != 6 {
			t.Fatalf("got %d messages, want 6", len(msgs))
		}
		if msgs[2].OfAssistant == nil || len(msgs[2].OfAssistant.ToolCalls) != 1 {
			t.Fatalf("assistant tool turn = %+v", msgs[2])
		}
		if msgs[3].OfTool == nil || msgs[3].OfTool.ToolCallID != "call-1" {
			t.Errorf("tool message = %+v", msgs[3])
		}
		if len(toOpenAIMessages("", nil)) != 0 {
			t.Error("empty transcript produced messages")
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		msgs := toAnthropicMessages(history)
		// user + assistant(tool_use) + user(tool_result) + assistant + user
		if len(msgs) != 5 {
			t.Fatalf("got %d messages, want 5", len(msgs))
		}
		if msgs[1].Role != "assistant" || msgs[2].Role != "user" {
			t.Errorf("roles = %s, %s", msgs[1].Role, msgs[2].Role)
		}
	})

	t.Run("ollama", func(t *testing.T) {
		msgs := toOllamaMessages("sistema", history)
		wantRoles := []string{"system", "user", "assistant", "tool", "assistant", "user"}
		if len(msgs) != len(wantRoles) {
			t.Fatalf("got %d messages, want %d", len(msgs), len(wantRoles))
		}
		for i, role := range wantRoles {
			if msgs[i].Role != role {
				t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, role)
			}
		}
		if len(msgs[2].ToolCalls) != 1 {
			t.Errorf("assistant tool calls = %v", msgs[2].ToolCalls)
		}
		if !strings.Contains(msgs[3].Content, `"count":50`) {
			t.Errorf("tool content = %q", msgs[3].Content)
		}
		if !strings.Contains(msgs[4].Content, "Hay 50 empresas") {
			t.Errorf("final assistant content = %q", msgs[4].Content)
		}
	})

	t.Run("gemini", func(t *testing.T) {
		contents := toGeminiContents(history)
		wantRoles := []string{"user", "model", "user", "model", "user"}
		if len(contents) != len(wantRoles) {
			t.Fatalf("got %d contents, want %d", len(contents), len(wantRoles))
		}
		for i, role := range wantRoles {
			if contents[i].Role != role {
				t.Errorf("content %d role = %q, want %q", i, contents[i].Role, role)
			}
		}
		fc := contents[1].Parts[0].FunctionCall
		if fc == nil || fc.ID != "call-1" || fc.Name != "aggregate_database" {
			t.Errorf("function call part = %+v", fc)
		}
		fr := contents[2].Parts[0].FunctionResponse
		if fr == nil || fr.ID != "call-1" || fr.Response["data"] == nil {
			t.Errorf("function response part = %+v", fr)
		}
	})
}

func TestFunctionResponseDropsSyntheticID(t *testing.T) {
	part := functionResponsePart(model.ToolResult{
		ToolCallID: newCallID(),
		Name:       "describe_table",
		Payload:    []any{1, 2},
	})
	if part.FunctionResponse.ID != "" {
		t.Errorf("ID = %q, want empty", part.FunctionResponse.ID)
	}
	if _, ok := part.FunctionResponse.Response["result"]; !ok {
		t.Errorf("non-object payload not wrapped: %v", part.FunctionResponse.Response)
	}
}
