package provider

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// NewOpenRouterProvider creates an OpenAI-protocol provider pointed at
// OpenRouter.
//
// Parameters:
//   - baseURL: OpenRouter API base URL (default: "https://openrouter.ai/api/v1")
//   - apiKey: OpenRouter API key (required)
//   - model: vendor-prefixed model name (default: "google/gemini-2.5-flash")
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if apiKey == "" {
		return nil, missingKey("OpenRouter")
	}
	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", "fieldreport"),
	)

	return &OpenAIProvider{client: client, model: model, label: "openrouter"}, nil
}
