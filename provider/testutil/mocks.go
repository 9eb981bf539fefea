// Package testutil provides a scripted model.Provider and transcript
// fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"fieldreport/model"
)

// ErrScriptExhausted is returned when the mock is called more times than it
// has scripted steps.
var ErrScriptExhausted = errors.New("mock provider script exhausted")

// Step is one scripted provider answer.
type Step struct {
	Turn *model.Turn
	Err  error
}

// SendCall records the arguments of one Send.
type SendCall struct {
	History []model.Message
	Prompt  string
	Tools   []mcptypes.Tool
	System  string
}

// ContinueCall records the arguments of one Continue.
type ContinueCall struct {
	History []model.Message
	Results []model.ToolResult
}

// MockProvider implements model.Provider for testing. By default it answers
// Send and Continue from a script, in order; SendFunc and ContinueFunc
// replace that behaviour.
type MockProvider struct {
	SendFunc     func(ctx context.Context, history []model.Message, prompt string, tools []mcptypes.Tool, system string) (*model.Turn, error)
	ContinueFunc func(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error)

	mu        sync.Mutex
	name      string
	script    []Step
	sends     []SendCall
	continues []ContinueCall
	resets    int
}

// NewMockProvider creates a mock that plays steps in order.
func NewMockProvider(name string, steps ...Step) *MockProvider {
	return &MockProvider{name: name, script: steps}
}

// Final is a step answering with final text.
func Final(text string) Step {
	return Step{Turn: &model.Turn{FinalText: text}}
}

// Calls is a step answering with tool calls.
func Calls(calls ...model.ToolCall) Step {
	return Step{Turn: &model.Turn{ToolCalls: calls}}
}

// Fail is a step answering with an error.
func Fail(err error) Step {
	return Step{Err: err}
}

// Script appends steps.
func (m *MockProvider) Script(steps ...Step) {
	m.mu.Lock()
	m.script = append(m.script, steps...)
	m.mu.Unlock()
}

func (m *MockProvider) next() (*model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) == 0 {
		return nil, ErrScriptExhausted
	}
	step := m.script[0]
	m.script = m.script[1:]
	return step.Turn, step.Err
}

func (m *MockProvider) Send(ctx context.Context, history []model.Message, prompt string, tools []mcptypes.Tool, system string) (*model.Turn, error) {
	m.mu.Lock()
	m.sends = append(m.sends, SendCall{
		History: append([]model.Message(nil), history...),
		Prompt:  prompt,
		Tools:   tools,
		System:  system,
	})
	fn := m.SendFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, prompt, tools, system)
	}
	return m.next()
}

func (m *MockProvider) Continue(ctx context.Context, history []model.Message, results []model.ToolResult) (*model.Turn, error) {
	m.mu.Lock()
	m.continues = append(m.continues, ContinueCall{
		History: append([]model.Message(nil), history...),
		Results: append([]model.ToolResult(nil), results...),
	})
	fn := m.ContinueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, results)
	}
	return m.next()
}

func (m *MockProvider) Reset() {
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
}

func (m *MockProvider) Name() string {
	return m.name
}

// Sends returns the recorded Send calls.
func (m *MockProvider) Sends() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendCall(nil), m.sends...)
}

// Continues returns the recorded Continue calls.
func (m *MockProvider) Continues() []ContinueCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ContinueCall(nil), m.continues...)
}

// Resets returns how many times Reset was called.
func (m *MockProvider) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}
