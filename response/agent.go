package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"fieldreport/config"
	"fieldreport/model"
)

// mutationWords mark a contexto that reports a create or update. The match is
// a lowercase substring test, so "Planta creada" and "Registro actualizado"
// both qualify.
var mutationWords = []string{
	"cread", "actualizad", "insertad", "registrad", "guardad",
	"created", "updated",
}

// FromAgent converts an external agent body into a canonical response.
// The expected envelope is {"error": bool, "contexto": string, "data": any}.
func FromAgent(body []byte) model.AssistantResponse {
	return Sanitize(fromAgent(body))
}

func fromAgent(body []byte) model.AssistantResponse {
	trimmed := bytes.TrimSpace(body)
	if !gjson.ValidBytes(trimmed) {
		return unrecognized(trimmed)
	}

	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return unrecognized(trimmed)
	}

	if root.Get("displayText").Exists() {
		if resp, ok := parseCanonical(trimmed); ok {
			return resp
		}
	}

	errField := lookup(root, "error")
	contexto := lookup(root, "contexto")
	data := lookup(root, "data")
	if !errField.Exists() && !contexto.Exists() && !data.Exists() {
		return unrecognized(trimmed)
	}

	ctxText := strings.TrimSpace(contexto.String())

	if truthy(errField) {
		text := "El agente no pudo completar la operación."
		if ctxText != "" {
			text = "El agente no pudo completar la operación: " + ctxText
		} else if errField.Type == gjson.String {
			ctxText = errField.Str
		}
		return model.AssistantResponse{
			DisplayText: text,
			StatusDisplay: &model.StatusDisplay{
				Icon:    model.IconError,
				Title:   "Error del agente",
				Message: ctxText,
			},
		}
	}

	switch {
	case data.IsArray():
		records := data.Array()
		if len(records) == 0 {
			return emptyResult(ctxText)
		}
		return tableResult(ctxText, records)

	case !data.Exists() || data.Type == gjson.Null:
		text := ctxText
		if text == "" {
			text = "El agente procesó la solicitud."
		}
		return model.AssistantResponse{
			DisplayText:   text,
			StatusDisplay: &model.StatusDisplay{Icon: model.IconInfo, Title: "Información", Message: text},
		}

	default:
		text := ctxText
		if text == "" {
			text = "Operación realizada con éxito."
		}
		return model.AssistantResponse{
			DisplayText:   text,
			StatusDisplay: &model.StatusDisplay{Icon: model.IconSuccess, Title: "Operación exitosa", Message: text},
		}
	}
}

func emptyResult(ctxText string) model.AssistantResponse {
	text := "0 resultados: no se encontraron registros."
	if ctxText != "" {
		text = ctxText + "\n\n" + text
	}
	return model.AssistantResponse{
		DisplayText: text,
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconInfo,
			Title:   "Sin resultados",
			Message: "La consulta devolvió 0 resultados.",
		},
	}
}

func tableResult(ctxText string, records []gjson.Result) model.AssistantResponse {
	table := buildTable(records)

	n := len(records)
	text := ctxText
	if text == "" {
		if n == 1 {
			text = "Se encontró 1 resultado."
		} else {
			text = fmt.Sprintf("Se encontraron %d resultados.", n)
		}
	}

	status := &model.StatusDisplay{Icon: model.IconInfo, Title: fmt.Sprintf("%d resultado(s)", n), Message: text}
	if n == 1 && impliesMutation(ctxText) {
		status = &model.StatusDisplay{Icon: model.IconSuccess, Title: "Operación exitosa", Message: text}
	}

	return model.AssistantResponse{
		DisplayText:   text,
		Table:         table,
		StatusDisplay: status,
	}
}

// buildTable takes its headers from the keys of the first record in document
// order. Records that are not objects land in a single "valor" column.
func buildTable(records []gjson.Result) *model.Table {
	first := records[0]
	if !first.IsObject() {
		t := &model.Table{Headers: []string{"valor"}}
		for _, r := range records {
			t.Rows = append(t.Rows, []string{FormatCell(r)})
		}
		return t
	}

	var headers []string
	first.ForEach(func(key, _ gjson.Result) bool {
		headers = append(headers, key.String())
		return true
	})

	t := &model.Table{Headers: headers, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		row := make([]string, len(headers))
		if r.IsObject() {
			values := make(map[string]gjson.Result, len(headers))
			r.ForEach(func(key, value gjson.Result) bool {
				values[key.String()] = value
				return true
			})
			for i, h := range headers {
				row[i] = FormatCell(values[h])
			}
		} else if len(row) > 0 {
			row[0] = FormatCell(r)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatCell renders a JSON value as a table cell. Timestamps become
// DD/MM/YYYY, HH:MM:SS; objects show their nombre, name or id, or indented
// JSON when they have none; null becomes empty.
func FormatCell(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		if ts, ok := FormatTimestamp(v.Str); ok {
			return ts
		}
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return v.Raw
	}

	if v.IsObject() {
		for _, key := range []string{"nombre", "name", "id"} {
			if f := lookup(v, key); f.Exists() && f.Type != gjson.Null {
				return FormatCell(f)
			}
		}
	}
	return indentJSON([]byte(v.Raw))
}

func impliesMutation(contexto string) bool {
	lower := strings.ToLower(contexto)
	for _, w := range mutationWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// truthy follows the loose truthiness the agent relies on: false, 0, "",
// "false" and null are false.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		s := strings.TrimSpace(strings.ToLower(v.Str))
		return s != "" && s != "false" && s != "0"
	case gjson.JSON:
		return true
	default:
		return false
	}
}

// lookup reads a top-level key without gjson path syntax, so keys holding
// dots or wildcards are matched literally.
func lookup(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

func unrecognized(raw []byte) model.AssistantResponse {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Response] Agent payload has no standard envelope (%d bytes)", len(raw))
	}
	body := indentJSON(raw)
	return model.AssistantResponse{
		DisplayText: "El agente respondió con una estructura no estándar:\n\n```json\n" + body + "\n```",
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconInfo,
			Title:   "Estructura no estándar",
			Message: "Se muestra la respuesta original del agente.",
		},
	}
}

func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
