package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fieldreport/model"
)

// ParseToolArguments parses a JSON arguments string into a map. Empty input
// is an empty object; anything that is not a JSON object is an error
// wrapping ErrMalformedPayload.
func ParseToolArguments(argsJSON string) (map[string]any, error) {
	if argsJSON == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, fmt.Errorf("%w: tool arguments: %v", ErrMalformedPayload, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// EncodeToolArguments is the inverse of ParseToolArguments.
func EncodeToolArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// SyntheticIDPrefix marks tool call IDs created locally for backends that do
// not issue their own.
const SyntheticIDPrefix = "local-"

func newCallID() string {
	return SyntheticIDPrefix + uuid.New().String()
}

// isSynthetic reports whether the backend never saw this ID.
func isSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticIDPrefix)
}

// finalTurn builds a terminal Turn, rejecting an empty answer.
func finalTurn(text string) (*model.Turn, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedPayload)
	}
	return &model.Turn{FinalText: text}, nil
}

// assistantText returns what an assistant message said besides its tool
// calls, if anything.
func assistantText(m model.Message) string {
	if len(m.PendingToolCalls) > 0 {
		return m.Raw
	}
	return m.ProviderText()
}
