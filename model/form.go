package model

import (
	"strconv"
	"strings"
)

// ActiveForm is the form of the newest assistant message that carries one.
// It is UI state only and is never persisted.
type ActiveForm struct {
	OriginIndex int
	OriginTime  int64
	Fields      []FormField
	Values      map[string]any
}

// NewActiveForm builds an ActiveForm with blank defaults: "" for text and
// select fields, false for checkboxes.
func NewActiveForm(index int, msg Message) *ActiveForm {
	fields := append([]FormField(nil), msg.Response.Form...)
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Type == FieldCheckbox {
			values[f.Name] = false
		} else {
			values[f.Name] = ""
		}
	}
	return &ActiveForm{
		OriginIndex: index,
		OriginTime:  msg.Timestamp.UnixNano(),
		Fields:      fields,
		Values:      values,
	}
}

// DeriveActiveForm scans messages newest-first for the last assistant message
// carrying a form. When it is the message already tracked by current, current
// is returned untouched so typed values survive. When it is a different
// message a fresh form with blank values is returned. When no assistant
// message has a form, or a newer assistant message without a form follows it,
// nil is returned.
func DeriveActiveForm(messages []Message, current *ActiveForm) *ActiveForm {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Sender != SenderAssistant {
			continue
		}
		if !msg.HasForm() {
			return nil
		}
		if current != nil && current.OriginIndex == i && current.OriginTime == msg.Timestamp.UnixNano() {
			return current
		}
		return NewActiveForm(i, msg)
	}
	return nil
}

// Field returns the field descriptor with the given name.
func (f *ActiveForm) Field(name string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FormField{}, false
}

// Payload returns the collected values ready to be embedded as JSON.
// Select values shaped "id: label" are reduced to the id.
func (f *ActiveForm) Payload() map[string]any {
	out := make(map[string]any, len(f.Values))
	for _, field := range f.Fields {
		v := f.Values[field.Name]
		if field.Type == FieldSelect {
			if s, ok := v.(string); ok {
				v = ReduceSelectValue(s)
			}
		}
		out[field.Name] = v
	}
	return out
}

// ReduceSelectValue turns "2: ACME" into 2 and "abc: Label" into "abc".
// Values without the separator are returned unchanged.
func ReduceSelectValue(v string) any {
	idx := strings.Index(v, ":")
	if idx <= 0 {
		return v
	}
	id := strings.TrimSpace(v[:idx])
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

// SubmissionKind tags what a user submission carries.
type SubmissionKind string

const (
	SubmissionText SubmissionKind = "text"
	SubmissionForm SubmissionKind = "form-submission"
)

// Submission is a user turn as produced at the UI boundary.
type Submission struct {
	Kind    SubmissionKind
	Text    string
	Payload map[string]any
}

// TextSubmission wraps free text.
func TextSubmission(text string) Submission {
	return Submission{Kind: SubmissionText, Text: text}
}

// FormSubmission wraps collected form values.
func FormSubmission(payload map[string]any) Submission {
	return Submission{Kind: SubmissionForm, Payload: payload}
}
