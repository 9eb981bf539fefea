package testutil

import (
	"time"

	"fieldreport/model"
)

// ToolTranscript returns a conversation with one completed tool round:
// user question, assistant tool call, tool result, final answer, follow-up
// question.
func ToolTranscript() []model.Message {
	now := time.Now()
	resp := model.AssistantResponse{DisplayText: "Hay 50 empresas registradas."}
	return []model.Message{
		{Sender: model.SenderUser, Text: "¿Cuántas empresas hay?", Timestamp: now},
		{
			Sender: model.SenderAssistant,
			PendingToolCalls: []model.ToolCall{{
				ID:        "call-1",
				Name:      "aggregate_database",
				Arguments: map[string]any{"table": "Empresa", "function": "count", "column": "*"},
			}},
			Timestamp: now,
		},
		{
			Sender: model.SenderTool,
			ToolResults: []model.ToolResult{{
				ToolCallID: "call-1",
				Name:       "aggregate_database",
				Payload:    map[string]any{"data": []any{map[string]any{"count": 50}}},
			}},
			Timestamp: now,
		},
		{Sender: model.SenderAssistant, Response: &resp, Timestamp: now},
		{Sender: model.SenderUser, Text: "¿Y plantas?", Timestamp: now},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(text string) []model.Message {
	return []model.Message{model.UserMessage(text)}
}

// CountCall is an aggregate count over table.
func CountCall(id, table string) model.ToolCall {
	return model.ToolCall{
		ID:        id,
		Name:      "aggregate_database",
		Arguments: map[string]any{"table": table, "function": "count", "column": "*"},
	}
}
