package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// StatusIcon is the kind of status banner attached to a response.
type StatusIcon string

const (
	IconSuccess StatusIcon = "success"
	IconError   StatusIcon = "error"
	IconInfo    StatusIcon = "info"
	IconWarning StatusIcon = "warning"
)

// AssistantResponse is the only shape the UI renders.
// DisplayText is always present; every other field is optional.
type AssistantResponse struct {
	DisplayText   string         `json:"displayText"`
	Table         *Table         `json:"table,omitempty"`
	Chart         *Chart         `json:"chart,omitempty"`
	Actions       []Action       `json:"actions,omitempty"`
	Form          Form           `json:"form,omitempty"`
	StatusDisplay *StatusDisplay `json:"statusDisplay,omitempty"`
	Suggestions   []string       `json:"suggestions,omitempty"`
}

// Table holds pre-stringified cells. Every row has len(Headers) cells.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// UnmarshalJSON accepts any JSON scalar as a cell and stringifies it.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw struct {
		Headers []json.RawMessage   `json:"headers"`
		Rows    [][]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Headers = make([]string, len(raw.Headers))
	for i, h := range raw.Headers {
		t.Headers[i] = rawToString(h)
	}
	t.Rows = make([][]string, len(raw.Rows))
	for i, row := range raw.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = rawToString(c)
		}
		t.Rows[i] = cells
	}
	return nil
}

// ChartType is the chart flavour.
type ChartType string

const (
	ChartBar ChartType = "bar"
	ChartPie ChartType = "pie"
)

// Chart is a simple categorical chart.
type Chart struct {
	Type ChartType    `json:"type"`
	Data []ChartPoint `json:"data"`
}

// ChartPoint is one category of a chart.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// UnmarshalJSON tolerates numeric values sent as strings.
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  json.RawMessage `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = rawToString(raw.Name)
	v, err := strconv.ParseFloat(strings.TrimSpace(rawToString(raw.Value)), 64)
	if err != nil && len(raw.Value) > 0 {
		return fmt.Errorf("chart value %s is not a number", raw.Value)
	}
	p.Value = v
	return nil
}

// Action is a button that replays Prompt as a new user turn.
type Action struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

// FieldType is the input kind of a form field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// FormField describes one input. For dependent foreign-key fields Name is
// the target column name (e.g. id_empresa).
type FormField struct {
	Type        FieldType `json:"type"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// UnmarshalJSON accepts options given as strings or as {id, label} objects,
// which are flattened to the "id: label" shape.
func (f *FormField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        FieldType         `json:"type"`
		Name        string            `json:"name"`
		Label       string            `json:"label"`
		Options     []json.RawMessage `json:"options"`
		Placeholder string            `json:"placeholder"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Name = raw.Name
	f.Label = raw.Label
	f.Placeholder = raw.Placeholder
	f.Options = nil
	for _, o := range raw.Options {
		f.Options = append(f.Options, optionString(o))
	}
	if f.Type == "" {
		f.Type = FieldText
	}
	return nil
}

func optionString(raw json.RawMessage) string {
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return rawToString(raw)
	}
	id := firstOf(res, "id", "value")
	label := firstOf(res, "label", "nombre", "name")
	switch {
	case id != "" && label != "":
		return id + ": " + label
	case id != "":
		return id
	default:
		return label
	}
}

func firstOf(res gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := res.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return ""
}

// Form is an ordered list of fields. A bare JSON object is coerced into a
// list: either a single field, or a map of name to field in document order.
type Form []FormField

// UnmarshalJSON implements the list coercion described on Form.
func (f *Form) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}

	if trimmed[0] == '[' {
		var fields []FormField
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		*f = fields
		return nil
	}

	res := gjson.ParseBytes(trimmed)
	if !res.IsObject() {
		return fmt.Errorf("form must be a list of fields")
	}

	if res.Get("name").Exists() || res.Get("type").Exists() {
		var field FormField
		if err := json.Unmarshal(trimmed, &field); err != nil {
			return err
		}
		*f = Form{field}
		return nil
	}

	var fields Form
	var decodeErr error
	res.ForEach(func(key, value gjson.Result) bool {
		var field FormField
		if err := json.Unmarshal([]byte(value.Raw), &field); err != nil {
			decodeErr = err
			return false
		}
		if field.Name == "" {
			field.Name = key.String()
		}
		fields = append(fields, field)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}
	*f = fields
	return nil
}

// StatusDisplay is a status banner.
type StatusDisplay struct {
	Icon    StatusIcon `json:"icon"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// rawToString renders a JSON scalar as display text. Strings are unquoted,
// null becomes empty and everything else keeps its JSON spelling.
func rawToString(raw json.RawMessage) string {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return res.Str
	default:
		return strings.TrimSpace(res.Raw)
	}
}
