package ui

import (
	"testing"

	"fieldreport/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/set nombre=Planta X", "set", "nombre=Planta X", true},
		{"/enviar", "submit", "", true},
		{"/Modo agente", "mode", "agente", true},
		{"/acción 2", "action", "2", true},
		{"  /copiar  ", "copy", "", true},
		{"/borrar todo", "", "", false},
		{"hola /set x=1", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.input)
		if ok != tt.wantOK || got.Name != tt.wantName || got.Args != tt.wantArgs {
			t.Errorf("ParseCommand(%q) = %+v, %v; want %s %q %v", tt.input, got, ok, tt.wantName, tt.wantArgs, tt.wantOK)
		}
	}
}

func TestParseAssignment(t *testing.T) {
	form := model.NewActiveForm(1, model.AssistantMessage(model.AssistantResponse{
		DisplayText: "Completa",
		Form: model.Form{
			{Type: model.FieldText, Name: "nombre", Label: "Nombre"},
			{Type: model.FieldCheckbox, Name: "activa", Label: "Activa"},
			{Type: model.FieldSelect, Name: "id_empresa", Label: "Empresa", Options: []string{"1: ACME", "2: Minera Sur"}},
		},
	}))

	tests := []struct {
		args      string
		wantName  string
		wantValue any
		wantErr   bool
	}{
		{"nombre = Planta X", "nombre", "Planta X", false},
		{"activa=sí", "activa", true, false},
		{"activa=0", "activa", false, false},
		{"activa=quizás", "", nil, true},
		{"id_empresa=2", "id_empresa", "2: Minera Sur", false},
		{"id_empresa=2: minera sur", "id_empresa", "2: Minera Sur", false},
		{"id_empresa=9", "id_empresa", "9", false},
		{"ciudad=Calama", "", nil, true},
		{"nombre", "", nil, true},
	}
	for _, tt := range tests {
		name, value, err := ParseAssignment(tt.args, form)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAssignment(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if name != tt.wantName || value != tt.wantValue {
			t.Errorf("ParseAssignment(%q) = %q, %v; want %q, %v", tt.args, name, value, tt.wantName, tt.wantValue)
		}
	}

	if _, _, err := ParseAssignment("nombre=x", nil); err == nil {
		t.Error("assignment accepted without an active form")
	}
}

func TestParseIndex(t *testing.T) {
	if i, err := ParseIndex("2", 3); err != nil || i != 1 {
		t.Errorf("ParseIndex(2, 3) = %d, %v", i, err)
	}
	for _, args := range []string{"0", "4", "x", ""} {
		if _, err := ParseIndex(args, 3); err == nil {
			t.Errorf("ParseIndex(%q, 3) accepted", args)
		}
	}
	if _, err := ParseIndex("1", 0); err == nil {
		t.Error("ParseIndex on an empty list accepted")
	}
}
