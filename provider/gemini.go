package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"

	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/tools"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider is the stateful backend. It owns one chat session, opened
// lazily by Send and dropped by Reset. A session is also reopened when the
// system instruction or tool set changes.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32

	mu        sync.Mutex
	chat      *genai.Chat
	signature string
}

// NewGeminiProvider creates a Gemini API provider. baseURL is only set to
// point the client at a proxy or test server.
func NewGeminiProvider(apiKey, model, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, missingKey("Gemini")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		temperature: 0.2,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.model
}

// Reset drops the session; the next Send opens a new one.
func (p *GeminiProvider) Reset() {
	p.mu.Lock()
	p.chat = nil
	p.signature = ""
	p.mu.Unlock()
}

// Send implements model.Provider. history only seeds a new session; an open
// session already holds it.
func (p *GeminiProvider) Send(ctx context.Context, history []model.Message, prompt string, toolset []mcptypes.Tool, systemInstruction string) (*model.Turn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sig := sessionSignature(toolset, systemInstruction)
	if p.chat == nil || p.signature != sig {
		cfg := &genai.GenerateContentConfig{
			Tools:       tools.ToGemini(toolset),
			Temperature: &p.temperature,
		}
		if systemInstruction != "" {
			cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
		}

		chat, err := p.client.Chats.Create(ctx, p.model, cfg, toGeminiContents(history))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini chat: %w", err)
		}
		p.chat = chat
		p.signature = sig

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Gemini session opened with %d history messages, %d tools", len(history), len(toolset))
		}
	}

	resp, err := p.chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return nil, fmt.Errorf("Gemini request failed: %w", err)
	}
	return turnFromGemini(resp)
}

// Continue answers the previous turn's function calls in the open session.
func (p *GeminiProvider) Continue(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chat == nil {
		return nil, ErrNoSession
	}

	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, *functionResponsePart(r))
	}

	resp, err := p.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini request failed: %w", err)
	}
	return turnFromGemini(resp)
}

func sessionSignature(toolset []mcptypes.Tool, system string) string {
	names := make([]string, 0, len(toolset))
	for _, t := range toolset {
		names = append(names, t.Name)
	}
	return strings.Join(names, ",") + "\x00" + system
}

func functionResponsePart(r model.ToolResult) *genai.Part {
	id := r.ToolCallID
	if isSynthetic(id) {
		id = ""
	}
	return &genai.Part{
		FunctionResponse: &genai.FunctionResponse{
			ID:       id,
			Name:     r.Name,
			Response: r.PayloadMap(),
		},
	}
}

// toGeminiContents converts a transcript into session history.
func toGeminiContents(history []model.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		c := &genai.Content{Role: genai.RoleUser}
		switch m.Sender {
		case model.SenderUser:
			if m.Text != "" {
				c.Parts = append(c.Parts, genai.NewPartFromText(m.Text))
			}
		case model.SenderAssistant:
			c.Role = genai.RoleModel
			if text := assistantText(m); text != "" {
				c.Parts = append(c.Parts, genai.NewPartFromText(text))
			}
			for _, call := range m.PendingToolCalls {
				id := call.ID
				if isSynthetic(id) {
					id = ""
				}
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: id, Name: call.Name, Args: call.Arguments},
				})
			}
		case model.SenderTool:
			for _, r := range m.ToolResults {
				c.Parts = append(c.Parts, functionResponsePart(r))
			}
		}
		if len(c.Parts) > 0 {
			contents = append(contents, c)
		}
	}
	return contents
}

func turnFromGemini(resp *genai.GenerateContentResponse) (*model.Turn, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: Gemini returned no candidates", ErrMalformedPayload)
	}

	var text strings.Builder
	var calls []model.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = newCallID()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, model.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: args})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}

	if len(calls) > 0 {
		return &model.Turn{ToolCalls: calls}, nil
	}
	return finalTurn(text.String())
}
