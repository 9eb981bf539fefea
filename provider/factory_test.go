package provider

import (
	"context"
	"errors"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		notConfig   bool
		wantName    string
	}{
		{
			name:     "ollama provider with defaults",
			config:   Config{Type: ProviderTypeOllama},
			wantName: "ollama/qwen2.5:7b",
		},
		{
			name:     "ollama provider with custom config",
			config:   Config{Type: ProviderTypeOllama, BaseURL: "http://localhost:11434", Model: "llama3.1"},
			wantName: "ollama/llama3.1",
		},
		{
			name:     "gemini provider",
			config:   Config{Type: ProviderTypeGemini, APIKey: "test-key"},
			wantName: "gemini/gemini-2.5-flash",
		},
		{
			name:     "openai provider",
			config:   Config{Type: ProviderTypeOpenAI, Model: "gpt-4o-mini", APIKey: "test-key"},
			wantName: "openai/gpt-4o-mini",
		},
		{
			name:     "openrouter provider",
			config:   Config{Type: ProviderTypeOpenRouter, Model: "qwen/qwen3-coder", APIKey: "test-key"},
			wantName: "openrouter/qwen/qwen3-coder",
		},
		{
			name:     "anthropic provider",
			config:   Config{Type: ProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKey: "test-key"},
			wantName: "anthropic/claude-sonnet-4-5-20250929",
		},
		{
			name:        "gemini without key",
			config:      Config{Type: ProviderTypeGemini},
			expectError: true,
			notConfig:   true,
		},
		{
			name:        "openai without key",
			config:      Config{Type: ProviderTypeOpenAI},
			expectError: true,
			notConfig:   true,
		},
		{
			name:        "openrouter without key",
			config:      Config{Type: ProviderTypeOpenRouter},
			expectError: true,
			notConfig:   true,
		},
		{
			name:        "anthropic without key",
			config:      Config{Type: ProviderTypeAnthropic},
			expectError: true,
			notConfig:   true,
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("NewProvider() expected error, got nil")
				}
				if got := errors.Is(err, ErrNotConfigured); got != tt.notConfig {
					t.Errorf("errors.Is(err, ErrNotConfigured) = %v, want %v (err: %v)", got, tt.notConfig, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() unexpected error: %v", err)
			}
			if p == nil {
				t.Fatal("NewProvider() returned nil provider")
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestMapProviderIDToType(t *testing.T) {
	tests := []struct {
		id   string
		want ProviderType
	}{
		{"gemini", ProviderTypeGemini},
		{"google", ProviderTypeGemini},
		{"openai", ProviderTypeOpenAI},
		{"openrouter", ProviderTypeOpenRouter},
		{"anthropic", ProviderTypeAnthropic},
		{"claude", ProviderTypeAnthropic},
		{"ollama", ProviderTypeOllama},
		{"mystery", ProviderType("mystery")},
	}
	for _, tt := range tests {
		if got := MapProviderIDToType(tt.id); got != tt.want {
			t.Errorf("MapProviderIDToType(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestUnavailableReportsConstructionError(t *testing.T) {
	_, err := NewProvider(Config{Type: ProviderTypeOpenAI})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("NewProvider() error = %v, want ErrNotConfigured", err)
	}

	p := Unavailable{Err: err}
	if _, got := p.Send(context.Background(), nil, "hola", nil, ""); !errors.Is(got, ErrNotConfigured) {
		t.Errorf("Send() error = %v", got)
	}
	if _, got := p.Continue(context.Background(), nil, nil); !errors.Is(got, ErrNotConfigured) {
		t.Errorf("Continue() error = %v", got)
	}
}
