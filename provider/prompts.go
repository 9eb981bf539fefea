package provider

import (
	"strings"

	"fieldreport/model"
	"fieldreport/storage"
)

// responseFormat describes the canonical JSON the model must answer with.
var responseFormat = []string{
	"FORMATO DE RESPUESTA:",
	"Responde SIEMPRE con un único objeto JSON, sin texto fuera de él, con esta forma:",
	`{`,
	`  "displayText": "texto para el usuario (obligatorio)",`,
	`  "table": {"headers": ["col1", "col2"], "rows": [["v1", "v2"]]},`,
	`  "chart": {"type": "bar|pie", "data": [{"name": "etiqueta", "value": 10}]},`,
	`  "actions": [{"label": "texto del botón", "prompt": "mensaje a enviar"}],`,
	`  "form": [{"type": "text|select|checkbox", "name": "columna", "label": "Etiqueta", "options": ["id: nombre"]}],`,
	`  "statusDisplay": {"icon": "success|error|info|warning", "title": "...", "message": "..."},`,
	`  "suggestions": ["siguiente pregunta sugerida"]`,
	`}`,
	"Todos los campos salvo displayText son opcionales. Omite los que no apliquen.",
	"Cada fila de la tabla debe tener tantas celdas como encabezados.",
	"Usa un formulario cuando necesites que el usuario complete datos para registrar algo.",
	"En los campos select usa opciones con la forma \"id: nombre\".",
}

var policy = []string{
	"REGLAS:",
	"- Nunca elimines registros. Si el usuario pide borrar algo, explica que no está permitido.",
	"- No inventes datos: consulta antes de responder.",
	"- Responde en español.",
}

// SystemInstruction returns the system instruction for a mode.
func SystemInstruction(mode model.Mode) string {
	var lines []string
	lines = append(lines,
		"Eres un asistente de informes de servicio técnico en campo.",
		"Ayudas a consultar y registrar empresas, plantas, máquinas, supervisores, informes de servicio e informes de visita.",
		"",
	)

	if mode == model.ModeAgent {
		lines = append(lines,
			"HERRAMIENTAS:",
			"- query_agent: envía al agente externo una consulta en lenguaje natural, completa y autocontenida.",
			"- submit_agent_data: envía al agente los datos de un registro a crear o actualizar.",
			"El agente tiene acceso a la base de datos; tú no.",
		)
	} else {
		lines = append(lines,
			"TABLAS: "+strings.Join(storage.AllowedTables, ", "),
			"",
			"HERRAMIENTAS:",
			"- describe_table: consulta las columnas de una tabla si no las conoces.",
			"- query_database: lee registros con filtros, columnas, orden y límite.",
			"- aggregate_database: cuenta, suma, promedia o busca mínimos y máximos.",
			"- mutate_database: inserta (INSERT) o actualiza (UPDATE, siempre con filtro) registros.",
			"Si tienes todos los parámetros, ejecuta la herramienta sin pedir confirmación.",
			"Si faltan datos para registrar algo, pídelos con un formulario.",
		)
	}

	lines = append(lines, "")
	lines = append(lines, policy...)
	lines = append(lines, "")
	lines = append(lines, responseFormat...)
	return strings.Join(lines, "\n")
}
