// Package tools declares the tool surfaces offered to the LLM, converts them
// to each provider's schema dialect, and executes the calls it makes.
package tools

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"fieldreport/model"
	"fieldreport/storage"
)

const (
	ToolQueryDatabase     = "query_database"
	ToolAggregateDatabase = "aggregate_database"
	ToolMutateDatabase    = "mutate_database"
	ToolDescribeTable     = "describe_table"

	ToolQueryAgent      = "query_agent"
	ToolSubmitAgentData = "submit_agent_data"
)

const filterDescription = `Filtro opcional. Cada clave es una columna. El valor se compara por igualdad, ` +
	`o puede ser {"op": "eq|neq|gt|gte|lt|lte|like|in", "value": ...}. Una lista equivale a "in".`

func tableParam(desc string) mcptypes.ToolOption {
	return mcptypes.WithString("table",
		mcptypes.Required(),
		mcptypes.Description(desc),
		mcptypes.Enum(storage.AllowedTables...),
	)
}

// DirectTools are the database operations offered in direct mode. DELETE is
// deliberately absent.
func DirectTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool(ToolQueryDatabase,
			mcptypes.WithDescription("Consulta registros de una tabla de la base de datos."),
			tableParam("Tabla a consultar."),
			mcptypes.WithArray("columns",
				mcptypes.Description("Columnas a devolver. Si se omite se devuelven todas."),
				mcptypes.Items(map[string]any{"type": "string"}),
			),
			mcptypes.WithObject("filter", mcptypes.Description(filterDescription)),
			mcptypes.WithNumber("limit", mcptypes.Description("Máximo de filas (por defecto 100, máximo 1000).")),
			mcptypes.WithString("order_by", mcptypes.Description(`Columna de orden, opcionalmente seguida de "asc" o "desc".`)),
		),
		mcptypes.NewTool(ToolAggregateDatabase,
			mcptypes.WithDescription("Calcula un agregado (conteo, suma, promedio, mínimo o máximo) sobre una tabla."),
			tableParam("Tabla sobre la que se agrega."),
			mcptypes.WithString("function",
				mcptypes.Required(),
				mcptypes.Description("Función de agregación."),
				mcptypes.Enum("count", "sum", "avg", "min", "max"),
			),
			mcptypes.WithString("column",
				mcptypes.Required(),
				mcptypes.Description(`Columna a agregar. Usa "*" con count para contar filas.`),
			),
			mcptypes.WithString("group_by", mcptypes.Description("Columna opcional para agrupar.")),
			mcptypes.WithObject("filter", mcptypes.Description(filterDescription)),
		),
		mcptypes.NewTool(ToolMutateDatabase,
			mcptypes.WithDescription("Inserta o actualiza registros. UPDATE exige un filtro. No se permite eliminar."),
			mcptypes.WithString("action_type",
				mcptypes.Required(),
				mcptypes.Description("Tipo de operación."),
				mcptypes.Enum("INSERT", "UPDATE"),
			),
			tableParam("Tabla a modificar."),
			mcptypes.WithObject("values",
				mcptypes.Required(),
				mcptypes.Description("Valores por columna."),
			),
			mcptypes.WithObject("filter", mcptypes.Description("Obligatorio para UPDATE. "+filterDescription)),
		),
		mcptypes.NewTool(ToolDescribeTable,
			mcptypes.WithDescription("Devuelve las columnas de una tabla con su tipo."),
			tableParam("Tabla a describir."),
		),
	}
}

// AgentTools are the only calls legal in agent mode.
func AgentTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool(ToolQueryAgent,
			mcptypes.WithDescription("Envía una consulta en lenguaje natural al agente externo, que tiene acceso a la base de datos."),
			mcptypes.WithString("consulta",
				mcptypes.Required(),
				mcptypes.Description("La consulta en español, completa y autocontenida."),
			),
		),
		mcptypes.NewTool(ToolSubmitAgentData,
			mcptypes.WithDescription("Envía datos estructurados al agente externo para crear o actualizar registros."),
			mcptypes.WithObject("data",
				mcptypes.Required(),
				mcptypes.Description("Datos por columna del registro a guardar."),
			),
		),
	}
}

// ForMode returns the tool surface of a mode.
func ForMode(mode model.Mode) []mcptypes.Tool {
	if mode == model.ModeAgent {
		return AgentTools()
	}
	return DirectTools()
}
