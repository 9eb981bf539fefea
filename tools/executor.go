package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"fieldreport/agent"
	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/storage"
)

const agentUnavailableMessage = "El agente no está disponible en este momento. Inténtalo de nuevo más tarde."

// AgentClient is the external agent as seen by the executor.
type AgentClient interface {
	Query(ctx context.Context, consulta string) (json.RawMessage, error)
	Submit(ctx context.Context, data map[string]any) (json.RawMessage, error)
}

// Executor runs provider tool calls against the database or the agent.
// Failures never escape Execute: they become {"error": "..."} payloads the
// model can read and explain.
type Executor struct {
	DB    storage.Database
	Agent AgentClient
}

func NewExecutor(db storage.Database, agentClient AgentClient) *Executor {
	return &Executor{DB: db, Agent: agentClient}
}

// Execute runs one call. The result always carries the call's ID.
func (e *Executor) Execute(ctx context.Context, call model.ToolCall, mode model.Mode) model.ToolResult {
	req := mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      call.Name,
			Arguments: call.Arguments,
		},
	}

	var payload any
	var err error
	if mode == model.ModeAgent {
		payload, err = e.executeAgent(ctx, req)
	} else {
		payload, err = e.executeDirect(ctx, req)
	}

	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Tools] %s (%s) failed: %v", call.Name, call.ID, err)
		}
		payload = model.ErrorPayload(errorMessage(err))
	} else if config.DebugLog != nil {
		config.DebugLog.Printf("[Tools] %s (%s) ok", call.Name, call.ID)
	}

	return model.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Payload:    payload,
	}
}

// ExecuteAll runs calls concurrently. results[i] answers calls[i].
func (e *Executor) ExecuteAll(ctx context.Context, calls []model.ToolCall, mode model.Mode) []model.ToolResult {
	results := make([]model.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call model.ToolCall) {
			defer wg.Done()
			results[i] = e.Execute(ctx, call, mode)
		}(i, call)
	}
	wg.Wait()

	return results
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, agent.ErrAgentUnavailable):
		return agentUnavailableMessage
	case errors.Is(err, agent.ErrAgentNotConfigured):
		return "El agente no está configurado (falta la URL del webhook)."
	case errors.Is(err, agent.ErrAsyncWebhook):
		return "El webhook del agente respondió \"Accepted\" sin datos. Configúralo para responder al finalizar el flujo."
	default:
		return err.Error()
	}
}

func (e *Executor) executeDirect(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	if e.DB == nil {
		return nil, errors.New("base de datos no disponible")
	}

	switch req.Params.Name {
	case ToolQueryDatabase:
		return e.query(ctx, req)
	case ToolAggregateDatabase:
		return e.aggregate(ctx, req)
	case ToolMutateDatabase:
		return e.mutate(ctx, req)
	case ToolDescribeTable:
		return e.describe(ctx, req)
	default:
		return nil, fmt.Errorf("herramienta no soportada: %s", req.Params.Name)
	}
}

func (e *Executor) query(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	table, err := tableArg(req)
	if err != nil {
		return nil, err
	}
	filter, err := objectArg(req, "filter")
	if err != nil {
		return nil, err
	}

	rows, err := e.DB.Select(ctx, storage.SelectQuery{
		Table:   table,
		Columns: stringListArg(req, "columns"),
		Filter:  filter,
		Limit:   req.GetInt("limit", 0),
		OrderBy: req.GetString("order_by", ""),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": rowsOrEmpty(rows)}, nil
}

func (e *Executor) aggregate(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	table, err := tableArg(req)
	if err != nil {
		return nil, err
	}
	function, err := req.RequireString("function")
	if err != nil {
		return nil, fmt.Errorf("%w: falta \"function\"", storage.ErrInvalidArgument)
	}
	filter, err := objectArg(req, "filter")
	if err != nil {
		return nil, err
	}

	rows, err := e.DB.Aggregate(ctx, storage.AggregateQuery{
		Table:    table,
		Function: function,
		Column:   req.GetString("column", "*"),
		GroupBy:  req.GetString("group_by", ""),
		Filter:   filter,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": rowsOrEmpty(rows)}, nil
}

func (e *Executor) mutate(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	action := strings.ToUpper(strings.TrimSpace(req.GetString("action_type", "")))
	if action == "DELETE" {
		return nil, errors.New("la eliminación de registros no está permitida")
	}

	table, err := tableArg(req)
	if err != nil {
		return nil, err
	}
	values, err := objectArg(req, "values")
	if err != nil {
		return nil, err
	}
	filter, err := objectArg(req, "filter")
	if err != nil {
		return nil, err
	}

	switch action {
	case "INSERT":
		row, err := e.DB.Insert(ctx, table, values)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": []storage.Row{row}}, nil
	case "UPDATE":
		// Checked here as well so an unfiltered UPDATE never reaches the
		// database layer.
		if len(filter) == 0 {
			return nil, fmt.Errorf("%w: indica qué registros modificar", storage.ErrMissingFilter)
		}
		rows, err := e.DB.Update(ctx, table, values, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": rowsOrEmpty(rows), "updated": len(rows)}, nil
	default:
		return nil, fmt.Errorf("%w: action_type %q (usa INSERT o UPDATE)", storage.ErrInvalidArgument, action)
	}
}

func (e *Executor) describe(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	table, err := tableArg(req)
	if err != nil {
		return nil, err
	}
	cols, err := e.DB.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return map[string]any{"table": table, "columns": cols}, nil
}

func (e *Executor) executeAgent(ctx context.Context, req mcptypes.CallToolRequest) (any, error) {
	switch req.Params.Name {
	case ToolQueryAgent, ToolSubmitAgentData:
	default:
		return nil, fmt.Errorf("herramienta no soportada en modo agente: %s", req.Params.Name)
	}
	if e.Agent == nil {
		return nil, agent.ErrAgentNotConfigured
	}

	var raw json.RawMessage
	var err error
	if req.Params.Name == ToolQueryAgent {
		consulta, rerr := req.RequireString("consulta")
		if rerr != nil || strings.TrimSpace(consulta) == "" {
			return nil, fmt.Errorf("%w: falta \"consulta\"", storage.ErrInvalidArgument)
		}
		raw, err = e.Agent.Query(ctx, consulta)
	} else {
		data, derr := objectArg(req, "data")
		if derr != nil {
			return nil, derr
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: falta \"data\"", storage.ErrInvalidArgument)
		}
		raw, err = e.Agent.Submit(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrMalformedResponse, err)
	}
	return payload, nil
}

func tableArg(req mcptypes.CallToolRequest) (string, error) {
	name, err := req.RequireString("table")
	if err != nil {
		return "", fmt.Errorf("%w: falta \"table\"", storage.ErrInvalidArgument)
	}
	return storage.ResolveTable(name)
}

// objectArg reads an optional object argument. Models sometimes send the
// object JSON-encoded as a string; that form is accepted too.
func objectArg(req mcptypes.CallToolRequest, key string) (map[string]any, error) {
	switch v := req.GetArguments()[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%w: %q debe ser un objeto", storage.ErrInvalidArgument, key)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q debe ser un objeto", storage.ErrInvalidArgument, key)
	}
}

// stringListArg accepts a list of strings or a comma-separated string.
func stringListArg(req mcptypes.CallToolRequest, key string) []string {
	var out []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		out = append(out, v...)
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func rowsOrEmpty(rows []storage.Row) []storage.Row {
	if rows == nil {
		return []storage.Row{}
	}
	return rows
}

var deleteWords = []string{"delete", "eliminar", "borrar", "remove"}

// IsDeleteRequest reports whether a call asks for records to be deleted,
// either through mutate_database or through a tool the model invented.
func IsDeleteRequest(call model.ToolCall) bool {
	if action, ok := call.Arguments["action_type"].(string); ok {
		if strings.EqualFold(strings.TrimSpace(action), "DELETE") {
			return true
		}
	}
	name := strings.ToLower(call.Name)
	for _, w := range deleteWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

// AnyDeleteRequest reports whether any call in a batch asks for a deletion.
func AnyDeleteRequest(calls []model.ToolCall) bool {
	for _, c := range calls {
		if IsDeleteRequest(c) {
			return true
		}
	}
	return false
}
