package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/tools"
)

// OllamaProvider is a stateless backend on a local Ollama server. Ollama
// tool calls carry no IDs, so IDs are synthesized and tool results are
// replayed in call order.
type OllamaProvider struct {
	client  *api.Client
	model   string
	baseURL string

	state turnState
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (default: "http://localhost:11434")
//   - model: The model name to use (default: "qwen2.5:7b")
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen2.5:7b"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama/" + p.model
}

func (p *OllamaProvider) Reset() {
	p.state.reset()
}

// Send implements model.Provider.
func (p *OllamaProvider) Send(ctx context.Context, history []model.Message, prompt string, toolset []mcptypes.Tool, systemInstruction string) (*model.Turn, error) {
	p.state.capture(toolset, systemInstruction)

	messages := toOllamaMessages(systemInstruction, history)
	messages = append(messages, api.Message{Role: "user", Content: prompt})
	return p.chat(ctx, messages, toolset)
}

// Continue implements model.Provider.
func (p *OllamaProvider) Continue(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error) {
	toolset, system := p.state.get()

	messages := toOllamaMessages(system, history)
	for _, r := range results {
		messages = append(messages, api.Message{Role: "tool", Content: r.PayloadJSON()})
	}
	return p.chat(ctx, messages, toolset)
}

func (p *OllamaProvider) chat(ctx context.Context, messages []api.Message, toolset []mcptypes.Tool) (*model.Turn, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
	}
	if len(toolset) > 0 {
		req.Tools = tools.ToOllama(toolset)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s request with %d messages", p.Name(), len(messages))
	}

	var content strings.Builder
	var calls []api.ToolCall
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		calls = append(calls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}

	if len(calls) > 0 {
		return &model.Turn{ToolCalls: ConvertToProviderToolCalls(calls)}, nil
	}
	return finalTurn(content.String())
}

// ConvertToProviderToolCalls converts Ollama tool calls to model.ToolCall,
// assigning each a synthetic ID.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		args := map[string]any(call.Function.Arguments)
		if args == nil {
			args = map[string]any{}
		}
		result[i] = model.ToolCall{
			ID:        newCallID(),
			Name:      call.Function.Name,
			Arguments: args,
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts model.ToolCall back to Ollama's
// shape for replaying an assistant turn. IDs are dropped.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}

func toOllamaMessages(system string, history []model.Message) []api.Message {
	result := make([]api.Message, 0, len(history)+2)
	if system != "" {
		result = append(result, api.Message{Role: "system", Content: system})
	}

	for _, m := range history {
		switch m.Sender {
		case model.SenderUser:
			result = append(result, api.Message{Role: "user", Content: m.Text})
		case model.SenderAssistant:
			result = append(result, api.Message{
				Role:      "assistant",
				Content:   assistantText(m),
				ToolCalls: ConvertFromProviderToolCalls(m.PendingToolCalls),
			})
		case model.SenderTool:
			for _, r := range m.ToolResults {
				result = append(result, api.Message{Role: "tool", Content: r.PayloadJSON()})
			}
		}
	}

	return result
}
