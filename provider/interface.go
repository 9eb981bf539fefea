// Package provider adapts LLM backends to the model.Provider contract.
//
// Two capability sets sit behind the one interface:
//
//   - Stateful (Gemini): the backend owns a chat session. Send seeds it
//     with prior history the first time and afterwards only sends the new
//     prompt. Continue answers function calls inside the same session.
//   - Stateless (OpenAI, OpenRouter, Anthropic, Ollama): every call rebuilds
//     the full transcript from history. The tools and system instruction
//     given to Send are reused by the following Continue calls.
//
// Tool calls come back as []model.ToolCall whatever the backend calls them
// (functionCalls, tool_calls, tool_use). Their IDs are opaque and must be
// returned with the results unchanged.
//
// The backend is chosen once, by NewProvider or FromConfig. Nothing outside
// this package branches on the backend.
package provider

import (
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeGemini     ProviderType = "gemini"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOllama     ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

// turnState is what a stateless backend remembers between Send and the
// Continue calls of the same turn.
type turnState struct {
	mu     sync.Mutex
	tools  []mcptypes.Tool
	system string
}

func (s *turnState) capture(tools []mcptypes.Tool, system string) {
	s.mu.Lock()
	s.tools = tools
	s.system = system
	s.mu.Unlock()
}

func (s *turnState) get() ([]mcptypes.Tool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools, s.system
}

func (s *turnState) reset() {
	s.capture(nil, "")
}
