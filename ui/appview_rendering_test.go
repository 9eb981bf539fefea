package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"fieldreport/model"
)

func TestRenderResponseSections(t *testing.T) {
	resp := model.AssistantResponse{
		DisplayText: "Hay **2** plantas.",
		Table: &model.Table{
			Headers: []string{"id", "nombre"},
			Rows:    [][]string{{"1", "Planta Centro"}, {"2", "Planta Puerto"}},
		},
		Chart: &model.Chart{Type: model.ChartPie, Data: []model.ChartPoint{{Name: "ACME", Value: 3}, {Name: "Sur", Value: 1}}},
		Actions: []model.Action{{Label: "Ver máquinas", Prompt: "Lista las máquinas"}},
		StatusDisplay: &model.StatusDisplay{
			Icon: model.IconSuccess, Title: "Consulta lista", Message: "2 resultados",
		},
		Suggestions: []string{"¿Y las máquinas?"},
	}

	out := ansi.Strip(RenderResponse(resp, nil, 80))

	for _, want := range []string{
		"✔ Consulta lista", "2 resultados", "Planta Puerto", "nombre",
		"(75.0%)", "[1] Ver máquinas", "¿Y las máquinas?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFormShowsValues(t *testing.T) {
	msg := model.AssistantMessage(model.AssistantResponse{
		DisplayText: "Completa",
		Form: model.Form{
			{Type: model.FieldText, Name: "nombre", Label: "Nombre", Placeholder: "Planta..."},
			{Type: model.FieldCheckbox, Name: "activa", Label: "Activa"},
		},
	})
	form := model.NewActiveForm(0, msg)
	form.Values["activa"] = true

	out := ansi.Strip(RenderResponse(*msg.Response, form, 80))
	if !strings.Contains(out, "Activa: sí") {
		t.Errorf("checkbox value missing:\n%s", out)
	}
	if !strings.Contains(out, "Nombre: Planta...") {
		t.Errorf("placeholder missing:\n%s", out)
	}
	if !strings.Contains(out, "/enviar") {
		t.Errorf("submit hint missing:\n%s", out)
	}
}

func TestTruncateCell(t *testing.T) {
	long := strings.Repeat("máquina ", 10)
	got := truncateCell(long)
	if w := len([]rune(got)); w > maxCellWidth {
		t.Errorf("truncated cell has %d runes", w)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated cell = %q", got)
	}
	if got := truncateCell("a\nb"); got != "a b" {
		t.Errorf("truncateCell(newline) = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{50: "50", 2.5: "2.50", -3: "-3"}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
