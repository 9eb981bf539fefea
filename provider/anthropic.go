package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/tools"
)

// AnthropicProvider is a stateless backend on the Anthropic messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model

	state turnState
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: model to use (default: Claude Sonnet 4.5)
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, missingKey("Anthropic")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{client: &client, model: anthropicModel}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic/" + string(p.model)
}

func (p *AnthropicProvider) Reset() {
	p.state.reset()
}

// Send implements model.Provider.
func (p *AnthropicProvider) Send(ctx context.Context, history []model.Message, prompt string, toolset []mcptypes.Tool, systemInstruction string) (*model.Turn, error) {
	p.state.capture(toolset, systemInstruction)

	messages := toAnthropicMessages(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	return p.complete(ctx, messages, toolset, systemInstruction)
}

// Continue implements model.Provider.
func (p *AnthropicProvider) Continue(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error) {
	toolset, system := p.state.get()

	messages := toAnthropicMessages(history)
	messages = append(messages, anthropic.NewUserMessage(toolResultBlocks(results)...))
	return p.complete(ctx, messages, toolset, system)
}

func (p *AnthropicProvider) complete(ctx context.Context, messages []anthropic.MessageParam, toolset []mcptypes.Tool, system string) (*model.Turn, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 4096, // Required by Anthropic API
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(toolset) > 0 {
		params.Tools = tools.ToAnthropic(toolset)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s request with %d messages", p.Name(), len(messages))
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Anthropic request failed: %w", err)
	}
	return turnFromAnthropic(msg.Content)
}

func turnFromAnthropic(content []anthropic.ContentBlockUnion) (*model.Turn, error) {
	var text strings.Builder
	var calls []model.ToolCall

	for _, block := range content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(variant.Input) > 0 {
				if err := json.Unmarshal(variant.Input, &args); err != nil {
					return nil, fmt.Errorf("%w: tool_use input: %v", ErrMalformedPayload, err)
				}
			}
			calls = append(calls, model.ToolCall{ID: variant.ID, Name: variant.Name, Arguments: args})
		}
	}

	if len(calls) > 0 {
		return &model.Turn{ToolCalls: calls}, nil
	}
	return finalTurn(text.String())
}

// toAnthropicMessages rebuilds the transcript. Tool results travel in user
// messages as tool_result blocks; the system prompt is a request parameter.
func toAnthropicMessages(history []model.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(history)+1)

	for _, m := range history {
		switch m.Sender {
		case model.SenderUser:
			if m.Text == "" {
				continue
			}
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))

		case model.SenderAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := assistantText(m); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range m.PendingToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}

		case model.SenderTool:
			if len(m.ToolResults) > 0 {
				result = append(result, anthropic.NewUserMessage(toolResultBlocks(m.ToolResults)...))
			}
		}
	}

	return result
}

func toolResultBlocks(results []model.ToolResult) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, anthropic.NewToolResultBlock(r.ToolCallID, r.PayloadJSON(), r.IsError()))
	}
	return blocks
}
