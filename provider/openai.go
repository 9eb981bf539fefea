package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/tools"
)

// OpenAIProvider is a stateless backend on the chat completions API. It also
// serves OpenRouter, which speaks the same protocol.
type OpenAIProvider struct {
	client openai.Client
	model  string
	label  string

	state turnState
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: model to use (default: "gpt-4o-mini")
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, missingKey("OpenAI")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{client: client, model: model, label: "openai"}, nil
}

func (p *OpenAIProvider) Name() string {
	return p.label + "/" + p.model
}

func (p *OpenAIProvider) Reset() {
	p.state.reset()
}

// Send implements model.Provider.
func (p *OpenAIProvider) Send(ctx context.Context, history []model.Message, prompt string, toolset []mcptypes.Tool, systemInstruction string) (*model.Turn, error) {
	p.state.capture(toolset, systemInstruction)

	messages := toOpenAIMessages(systemInstruction, history)
	messages = append(messages, openai.UserMessage(prompt))
	return p.complete(ctx, messages, toolset)
}

// Continue implements model.Provider.
func (p *OpenAIProvider) Continue(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error) {
	toolset, system := p.state.get()

	messages := toOpenAIMessages(system, history)
	for _, r := range results {
		messages = append(messages, openai.ToolMessage(r.PayloadJSON(), r.ToolCallID))
	}
	return p.complete(ctx, messages, toolset)
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, toolset []mcptypes.Tool) (*model.Turn, error) {
	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(p.model),
	}
	if len(toolset) > 0 {
		params.Tools = tools.ToOpenAI(toolset)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s request with %d messages", p.Name(), len(messages))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.label, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s returned no choices", ErrMalformedPayload, p.label)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		calls := make([]model.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			args, err := ParseToolArguments(tc.Function.Arguments)
			if err != nil {
				return nil, err
			}
			id := tc.ID
			if id == "" {
				id = newCallID()
			}
			calls = append(calls, model.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
		}
		return &model.Turn{ToolCalls: calls}, nil
	}
	return finalTurn(msg.Content)
}

// toOpenAIMessages rebuilds the transcript: system first, then every
// user, assistant and tool message in order.
func toOpenAIMessages(system string, history []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, m := range history {
		switch m.Sender {
		case model.SenderUser:
			result = append(result, openai.UserMessage(m.Text))

		case model.SenderAssistant:
			if len(m.PendingToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(m.ProviderText()))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Raw != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Raw)}
			}
			for _, call := range m.PendingToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: EncodeToolArguments(call.Arguments),
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case model.SenderTool:
			for _, r := range m.ToolResults {
				result = append(result, openai.ToolMessage(r.PayloadJSON(), r.ToolCallID))
			}
		}
	}

	return result
}
