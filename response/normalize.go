// Package response turns raw LLM text and external-agent payloads into the
// canonical model.AssistantResponse the UI renders.
//
// Nothing here returns an error: whatever arrives is turned into something
// renderable, and raw content that cannot be parsed is kept for the user to
// inspect.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"fieldreport/config"
	"fieldreport/model"
)

// Origin says where a raw payload came from.
type Origin string

const (
	OriginLLM   Origin = "llm"
	OriginAgent Origin = "agent"
)

const defaultDisplayText = "Aquí tienes la información solicitada."

var fencedBlock = regexp.MustCompile("(?s)```[ \t]*(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// Normalize converts raw into a canonical response. raw may be a
// model.AssistantResponse (or pointer), a string, []byte/json.RawMessage, or
// any JSON-serializable value.
func Normalize(raw any, origin Origin) model.AssistantResponse {
	switch v := raw.(type) {
	case model.AssistantResponse:
		return Sanitize(v)
	case *model.AssistantResponse:
		if v == nil {
			return fallbackLLM("")
		}
		return Sanitize(*v)
	case string:
		return fromText([]byte(v), origin)
	case []byte:
		return fromText(v, origin)
	case json.RawMessage:
		return fromText(v, origin)
	case nil:
		if origin == OriginAgent {
			return unrecognized([]byte("null"))
		}
		return fallbackLLM("")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fallbackLLM(fmt.Sprintf("%v", raw))
	}
	return fromText(data, origin)
}

func fromText(data []byte, origin Origin) model.AssistantResponse {
	if origin == OriginAgent {
		return FromAgent(data)
	}
	return FromLLM(string(data))
}

// FromLLM parses the final text of a provider turn. The text is tried as
// strict JSON, then as the content of the first fenced code block. When both
// fail the raw text is shown verbatim with an error status.
func FromLLM(text string) model.AssistantResponse {
	trimmed := strings.TrimSpace(text)

	if resp, ok := parseCanonical([]byte(trimmed)); ok {
		return resp
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(trimmed, -1) {
		if resp, ok := parseCanonical([]byte(strings.TrimSpace(m[1]))); ok {
			return resp
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Response] LLM text is not canonical JSON (%d bytes), using fallback", len(text))
	}
	return fallbackLLM(text)
}

// parseCanonical decodes a JSON object into an AssistantResponse. Fields are
// decoded one by one so a malformed optional field is dropped instead of
// discarding the whole answer. An object with no usable canonical field is
// rejected so its content reaches the fallback instead of being lost.
func parseCanonical(data []byte) (model.AssistantResponse, bool) {
	var resp model.AssistantResponse
	if len(data) == 0 || data[0] != '{' {
		return resp, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return resp, false
	}

	decoded := 0
	for _, ok := range []bool{
		decodeField(fields, "displayText", &resp.DisplayText),
		decodeField(fields, "table", &resp.Table),
		decodeField(fields, "chart", &resp.Chart),
		decodeField(fields, "actions", &resp.Actions),
		decodeField(fields, "form", &resp.Form),
		decodeField(fields, "statusDisplay", &resp.StatusDisplay),
		decodeField(fields, "suggestions", &resp.Suggestions),
	} {
		if ok {
			decoded++
		}
	}
	if decoded == 0 {
		return resp, false
	}

	return Sanitize(resp), true
}

// decodeField leaves dst untouched when the field is absent, null or
// malformed, and reports whether it was set.
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) bool {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Response] Dropping malformed %q: %v", key, err)
		}
		return false
	}
	*dst = v
	return true
}

func fallbackLLM(text string) model.AssistantResponse {
	display := text
	if strings.TrimSpace(display) == "" {
		display = "El asistente devolvió una respuesta vacía."
	}
	return model.AssistantResponse{
		DisplayText: display,
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconError,
			Title:   "Formato inesperado",
			Message: "La respuesta del asistente no tiene el formato esperado. Se muestra el texto original.",
		},
	}
}

// Sanitize enforces the structural invariants of a canonical response:
// displayText is present, every table row has one cell per header, the form
// is a list of uniquely named fields, and empty sections are dropped.
// Sanitize is idempotent.
func Sanitize(resp model.AssistantResponse) model.AssistantResponse {
	out := resp

	out.Table = sanitizeTable(resp.Table)
	out.Chart = sanitizeChart(resp.Chart)
	out.Form = sanitizeForm(resp.Form)
	out.StatusDisplay = sanitizeStatus(resp.StatusDisplay)

	out.Actions = nil
	for _, a := range resp.Actions {
		if a.Prompt == "" && a.Label == "" {
			continue
		}
		if a.Label == "" {
			a.Label = a.Prompt
		}
		if a.Prompt == "" {
			a.Prompt = a.Label
		}
		out.Actions = append(out.Actions, a)
	}

	out.Suggestions = nil
	for _, s := range resp.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			out.Suggestions = append(out.Suggestions, s)
		}
	}

	if strings.TrimSpace(out.DisplayText) == "" {
		switch {
		case out.StatusDisplay != nil && out.StatusDisplay.Message != "":
			out.DisplayText = out.StatusDisplay.Message
		case out.StatusDisplay != nil && out.StatusDisplay.Title != "":
			out.DisplayText = out.StatusDisplay.Title
		default:
			out.DisplayText = defaultDisplayText
		}
	}

	return out
}

func sanitizeTable(t *model.Table) *model.Table {
	if t == nil {
		return nil
	}
	headers := append([]string(nil), t.Headers...)
	if len(headers) == 0 {
		// Headerless rows: name the columns by position.
		width := 0
		for _, row := range t.Rows {
			width = max(width, len(row))
		}
		if width == 0 {
			return nil
		}
		for i := range width {
			headers = append(headers, fmt.Sprintf("Columna %d", i+1))
		}
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		rows = append(rows, cells)
	}
	return &model.Table{Headers: headers, Rows: rows}
}

func sanitizeChart(c *model.Chart) *model.Chart {
	if c == nil || len(c.Data) == 0 {
		return nil
	}
	out := &model.Chart{Type: c.Type, Data: append([]model.ChartPoint(nil), c.Data...)}
	if out.Type != model.ChartBar && out.Type != model.ChartPie {
		out.Type = model.ChartBar
	}
	return out
}

func sanitizeForm(f model.Form) model.Form {
	if len(f) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(f))
	var out model.Form
	for _, field := range f {
		if field.Name == "" || seen[field.Name] {
			continue
		}
		seen[field.Name] = true
		switch field.Type {
		case model.FieldText, model.FieldSelect, model.FieldCheckbox:
		default:
			field.Type = model.FieldText
		}
		if field.Label == "" {
			field.Label = field.Name
		}
		out = append(out, field)
	}
	return out
}

func sanitizeStatus(s *model.StatusDisplay) *model.StatusDisplay {
	if s == nil || (s.Icon == "" && s.Title == "" && s.Message == "") {
		return nil
	}
	out := *s
	switch out.Icon {
	case model.IconSuccess, model.IconError, model.IconInfo, model.IconWarning:
	default:
		out.Icon = model.IconInfo
	}
	return &out
}
