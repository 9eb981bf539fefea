package tools

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// Schema returns the tool's input schema as a plain JSON Schema object.
func Schema(tool mcptypes.Tool) map[string]any {
	schema := map[string]any{
		"type":       tool.InputSchema.Type,
		"properties": tool.InputSchema.Properties,
	}
	if schema["type"] == "" {
		schema["type"] = "object"
	}
	if len(tool.InputSchema.Required) > 0 {
		schema["required"] = tool.InputSchema.Required
	}
	if tool.InputSchema.Defs != nil {
		schema["$defs"] = tool.InputSchema.Defs
	}
	return schema
}

// ToGemini converts tools to a single Gemini tool holding every function
// declaration.
func ToGemini(tools []mcptypes.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: Schema(tool),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ToOpenAI converts tools to the OpenAI chat completions format, which
// OpenRouter shares.
func ToOpenAI(tools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(Schema(tool)),
			},
		)
	}
	return result
}

// ToAnthropic converts tools to Anthropic tool params.
func ToAnthropic(tools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		// Type defaults to "object" when omitted
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}

// ToOllama converts tools to Ollama API tools.
func ToOllama(tools []mcptypes.Tool) []api.Tool {
	result := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  ollamaParameters(tool.InputSchema),
			},
		})
	}
	return result
}

func ollamaParameters(inputSchema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       inputSchema.Type,
		Required:   inputSchema.Required,
		Properties: make(map[string]api.ToolProperty),
	}
	if params.Type == "" {
		params.Type = "object"
	}
	if inputSchema.Defs != nil {
		params.Defs = inputSchema.Defs
	}
	for name, value := range inputSchema.Properties {
		params.Properties[name] = ollamaProperty(value)
	}
	return params
}

func ollamaProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		if err := json.Unmarshal(data, &propMap); err != nil {
			return prop
		}
	}

	// type can be a string or a list of strings
	switch t := propMap["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		prop.Type = api.PropertyType(stringsOf(t))
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	switch e := propMap["enum"].(type) {
	case []any:
		prop.Enum = e
	case []string:
		prop.Enum = make([]any, len(e))
		for i, v := range e {
			prop.Enum[i] = v
		}
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	if anyOf, ok := propMap["anyOf"].([]any); ok {
		prop.AnyOf = make([]api.ToolProperty, 0, len(anyOf))
		for _, item := range anyOf {
			prop.AnyOf = append(prop.AnyOf, ollamaProperty(item))
		}
	}

	return prop
}

func stringsOf(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
