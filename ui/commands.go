package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fieldreport/model"
)

// Command is a slash command typed into the input box.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"set":        "set",
	"campo":      "set",
	"enviar":     "submit",
	"submit":     "submit",
	"modo":       "mode",
	"mode":       "mode",
	"accion":     "action",
	"acción":     "action",
	"action":     "action",
	"sugerencia": "suggestion",
	"copiar":     "copy",
	"copy":       "copy",
	"ayuda":      "help",
	"help":       "help",
}

// ParseCommand recognizes "/name args". Unknown names are not commands, so
// a message that happens to start with a slash is still sent as text.
func ParseCommand(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return Command{}, false
	}
	name, args, _ := strings.Cut(input[1:], " ")
	canonical, ok := commandAliases[strings.ToLower(name)]
	if !ok {
		return Command{}, false
	}
	return Command{Name: canonical, Args: strings.TrimSpace(args)}, true
}

// ParseAssignment splits "campo=valor" and converts the value for the
// field's type: checkboxes take sí/no, true/false or 1/0.
func ParseAssignment(args string, form *model.ActiveForm) (string, any, error) {
	if form == nil {
		return "", nil, fmt.Errorf("no hay ningún formulario activo")
	}
	name, value, ok := strings.Cut(args, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("uso: /set campo=valor")
	}
	value = strings.TrimSpace(value)

	field, ok := form.Field(name)
	if !ok {
		return "", nil, fmt.Errorf("el formulario no tiene el campo %q", name)
	}

	switch field.Type {
	case model.FieldCheckbox:
		switch strings.ToLower(value) {
		case "sí", "si", "s", "true", "1", "x":
			return name, true, nil
		case "no", "n", "false", "0", "":
			return name, false, nil
		default:
			return "", nil, fmt.Errorf("el campo %q espera sí o no", name)
		}
	case model.FieldSelect:
		return name, resolveOption(field.Options, value), nil
	default:
		return name, value, nil
	}
}

// resolveOption accepts an option by its full text, its id, or its 1-based
// position in the list.
func resolveOption(options []string, value string) string {
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o
		}
	}
	for _, o := range options {
		if id, _, ok := strings.Cut(o, ":"); ok && strings.TrimSpace(id) == value {
			return o
		}
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return value
}

// ParseIndex reads a 1-based position within n items.
func ParseIndex(args string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || i < 1 || i > n {
		if n == 0 {
			return 0, fmt.Errorf("no hay elementos disponibles")
		}
		return 0, fmt.Errorf("indica un número entre 1 y %d", n)
	}
	return i - 1, nil
}

// lastResponse returns the newest assistant response in the log.
func lastResponse(messages []model.Message) *model.AssistantResponse {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == model.SenderAssistant && messages[i].Response != nil {
			return messages[i].Response
		}
	}
	return nil
}
