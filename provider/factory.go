package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"fieldreport/model"
)

// NewProvider creates a provider based on configuration.
//
// Supported provider types:
//   - ProviderTypeGemini: Gemini API, stateful chat session
//   - ProviderTypeOpenAI: OpenAI chat completions
//   - ProviderTypeOpenRouter: OpenRouter (OpenAI-compatible)
//   - ProviderTypeAnthropic: Anthropic messages API
//   - ProviderTypeOllama: local Ollama server
//
// Cloud backends without an API key return an error wrapping
// ErrNotConfigured.
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
// "google" is accepted as an alias of gemini. Unknown IDs are passed through
// and rejected by NewProvider.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "gemini", "google":
		return ProviderTypeGemini
	case "openai":
		return ProviderTypeOpenAI
	case "openrouter":
		return ProviderTypeOpenRouter
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	case "ollama":
		return ProviderTypeOllama
	default:
		return ProviderType(id)
	}
}

func missingKey(name string) error {
	return fmt.Errorf("%w: %s API key is required", ErrNotConfigured, name)
}

// Unavailable stands in for a backend that could not be created. Every turn
// fails with the construction error, so the chat still opens and shows why.
type Unavailable struct {
	Err error
}

func (u Unavailable) Send(context.Context, []model.Message, string, []mcptypes.Tool, string) (*model.Turn, error) {
	return nil, u.Err
}

func (u Unavailable) Continue(context.Context, []model.Message, []model.ToolResult) (*model.Turn, error) {
	return nil, u.Err
}

func (u Unavailable) Reset() {}

func (u Unavailable) Name() string { return "unavailable" }
