// Package chat owns the conversation: the message log, the tool-call loop,
// the form-submission shortcut to the agent, and the state the UI watches.
package chat

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldreport/agent"
	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/provider"
	"fieldreport/response"
	"fieldreport/tools"
)

// DefaultMaxToolRounds bounds the tool loop of a single turn.
const DefaultMaxToolRounds = 8

// ToolRunner executes one batch of tool calls. results[i] answers calls[i].
type ToolRunner interface {
	ExecuteAll(ctx context.Context, calls []model.ToolCall, mode model.Mode) []model.ToolResult
}

// Recorder receives the message log after every change.
type Recorder interface {
	Record(messages []model.Message) error
}

// Options configures an Orchestrator. Provider is required; the rest may be
// nil.
type Options struct {
	Provider      model.Provider
	Tools         ToolRunner
	Agent         tools.AgentClient
	Recorder      Recorder
	Mode          model.Mode
	MaxToolRounds int
}

// Snapshot is a copy of the state the UI renders.
type Snapshot struct {
	Messages         []model.Message
	IsLoading        bool
	HasUnreadMessage bool
	ActiveForm       *model.ActiveForm
	Mode             model.Mode
}

// Orchestrator drives conversation turns. It is safe for concurrent use;
// a turn runs on the caller's goroutine and submissions made while a turn
// is in flight are dropped.
type Orchestrator struct {
	provider  model.Provider
	runner    ToolRunner
	agent     tools.AgentClient
	recorder  Recorder
	maxRounds int

	mu         sync.Mutex
	messages   []model.Message
	transcript []model.Message
	busy       bool
	unread     bool
	open       bool
	form       *model.ActiveForm
	mode       model.Mode

	subs    map[int]chan Snapshot
	nextSub int
}

func New(opts Options) *Orchestrator {
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}
	mode := opts.Mode
	if mode == "" {
		mode = model.ModeDirect
	}
	return &Orchestrator{
		provider:  opts.Provider,
		runner:    opts.Tools,
		agent:     opts.Agent,
		recorder:  opts.Recorder,
		maxRounds: rounds,
		mode:      mode,
		subs:      make(map[int]chan Snapshot),
	}
}

// SendMessage runs one turn for free text. It returns false when the text is
// blank or a turn is already running.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) bool {
	return o.Submit(ctx, model.TextSubmission(text))
}

// Submit runs one turn for a submission from the UI. Form submissions, tagged
// or recognized by FormSubmissionPrefix, go straight to the agent.
func (o *Orchestrator) Submit(ctx context.Context, sub model.Submission) bool {
	if sub.Kind == model.SubmissionForm {
		return o.submitForm(ctx, sub.Payload)
	}

	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return false
	}
	if payload, ok := ParseFormSubmission(text); ok {
		return o.submitForm(ctx, payload)
	}
	return o.sendText(ctx, text)
}

// SubmitActiveForm submits the collected values of the active form.
func (o *Orchestrator) SubmitActiveForm(ctx context.Context) bool {
	o.mu.Lock()
	form := o.form
	o.mu.Unlock()

	if form == nil {
		return false
	}
	return o.submitForm(ctx, form.Payload())
}

// ParseFormSubmission recognizes the synthesized form turn in free text.
func ParseFormSubmission(text string) (map[string]any, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), FormSubmissionPrefix)
	if !ok {
		return nil, false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "{") {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(rest), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// FormSubmissionText renders payload as the user turn shown in the log.
func FormSubmissionText(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return FormSubmissionPrefix + " " + string(data)
}

func (o *Orchestrator) sendText(ctx context.Context, text string) bool {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Dropping message while a turn is running")
		}
		return false
	}
	o.busy = true
	user := model.UserMessage(text)
	o.messages = append(o.messages, user)
	history := append([]model.Message(nil), o.transcript...)
	mode := o.mode
	o.changedLocked()
	o.mu.Unlock()

	turnLog, resp, err := o.runTurn(ctx, history, user, mode)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false

	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Turn failed: %v", err)
		}
		// The provider may hold a half-finished exchange.
		o.provider.Reset()
		o.appendAssistantLocked(model.AssistantMessage(errorResponse(err)))
		return true
	}

	final := model.AssistantMessage(resp)
	o.transcript = append(o.transcript, turnLog...)
	o.transcript = append(o.transcript, final)
	o.appendAssistantLocked(final)
	return true
}

// runTurn sends the prompt and loops over tool calls until the provider
// answers. turnLog holds the user message and every completed tool
// exchange. An abandoned exchange leaves only the user message and resets
// the provider so no unanswered call is replayed.
func (o *Orchestrator) runTurn(ctx context.Context, history []model.Message, user model.Message, mode model.Mode) ([]model.Message, model.AssistantResponse, error) {
	toolset := tools.ForMode(mode)
	system := provider.SystemInstruction(mode)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Turn via %s in %s mode, %d history messages", o.provider.Name(), mode, len(history))
	}

	turn, err := o.provider.Send(ctx, history, user.Text, toolset, system)
	if err != nil {
		return nil, model.AssistantResponse{}, err
	}

	turnLog := []model.Message{user}
	for round := 0; !turn.IsFinal(); round++ {
		if tools.AnyDeleteRequest(turn.ToolCalls) {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Chat] Refusing delete request in round %d", round+1)
			}
			o.provider.Reset()
			return []model.Message{user}, deleteRefusal(), nil
		}
		if round >= o.maxRounds {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Chat] Tool loop stopped after %d rounds", round)
			}
			o.provider.Reset()
			return []model.Message{user}, loopCapResponse(), nil
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Round %d: %d tool calls", round+1, len(turn.ToolCalls))
		}

		pending := model.Message{
			Sender:           model.SenderAssistant,
			PendingToolCalls: turn.ToolCalls,
			Timestamp:        time.Now(),
		}
		turnLog = append(turnLog, pending)

		results := o.executeTools(ctx, turn.ToolCalls, mode)

		continueHistory := append(append([]model.Message(nil), history...), turnLog...)
		turn, err = o.provider.Continue(ctx, continueHistory, results)
		if err != nil {
			return nil, model.AssistantResponse{}, err
		}
		turnLog = append(turnLog, model.Message{
			Sender:      model.SenderTool,
			ToolResults: results,
			Timestamp:   time.Now(),
		})
	}

	return turnLog, response.FromLLM(turn.FinalText), nil
}

func (o *Orchestrator) executeTools(ctx context.Context, calls []model.ToolCall, mode model.Mode) []model.ToolResult {
	if o.runner == nil {
		results := make([]model.ToolResult, len(calls))
		for i, call := range calls {
			results[i] = model.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Payload:    model.ErrorPayload("no hay herramientas disponibles"),
			}
		}
		return results
	}
	return o.runner.ExecuteAll(ctx, calls, mode)
}

// submitForm posts a placeholder, sends payload to the agent without going
// through the provider, and replaces the placeholder with the outcome.
func (o *Orchestrator) submitForm(ctx context.Context, payload map[string]any) bool {
	if payload == nil {
		payload = map[string]any{}
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Dropping form submission while a turn is running")
		}
		return false
	}
	o.busy = true
	user := model.UserMessage(FormSubmissionText(payload))
	placeholder := model.AssistantMessage(processingResponse())
	placeholder.CorrelationID = uuid.New().String()
	o.messages = append(o.messages, user, placeholder)
	o.changedLocked()
	o.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Form submission %s with %d fields", placeholder.CorrelationID, len(payload))
	}

	resp := o.callAgent(ctx, payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false

	final := model.AssistantMessage(resp)
	o.replaceLocked(placeholder.CorrelationID, final)
	o.transcript = append(o.transcript, user, final)
	return true
}

func (o *Orchestrator) callAgent(ctx context.Context, payload map[string]any) model.AssistantResponse {
	if o.agent == nil {
		return errorResponse(agent.ErrAgentNotConfigured)
	}
	raw, err := o.agent.Submit(ctx, payload)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Agent submission failed: %v", err)
		}
		return errorResponse(err)
	}
	return response.Normalize(raw, response.OriginAgent)
}

// replaceLocked swaps the placeholder with final, keeping its position. A
// placeholder that disappeared (Restore during the call) is appended instead.
func (o *Orchestrator) replaceLocked(correlationID string, final model.Message) {
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].CorrelationID == correlationID {
			o.messages[i] = final
			o.markUnreadLocked()
			o.changedLocked()
			return
		}
	}
	o.appendAssistantLocked(final)
}

func (o *Orchestrator) appendAssistantLocked(msg model.Message) {
	o.messages = append(o.messages, msg)
	o.markUnreadLocked()
	o.changedLocked()
}

func (o *Orchestrator) markUnreadLocked() {
	if !o.open {
		o.unread = true
	}
}

// changedLocked re-derives the active form, persists the log and notifies
// subscribers.
func (o *Orchestrator) changedLocked() {
	o.form = model.DeriveActiveForm(o.messages, o.form)

	if o.recorder != nil {
		if err := o.recorder.Record(o.messages); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Failed to record transcript: %v", err)
		}
	}

	o.publishLocked()
}

// SetFormValue stores a value typed into the active form.
func (o *Orchestrator) SetFormValue(name string, value any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.form == nil {
		return ErrNoActiveForm
	}
	field, ok := o.form.Field(name)
	if !ok {
		return &FieldError{Name: name, Reason: "el campo no existe"}
	}

	switch field.Type {
	case model.FieldCheckbox:
		v, ok := value.(bool)
		if !ok {
			return &FieldError{Name: name, Reason: "se esperaba verdadero o falso"}
		}
		o.form.Values[name] = v
	default:
		s, ok := value.(string)
		if !ok {
			return &FieldError{Name: name, Reason: "se esperaba texto"}
		}
		if field.Type == model.FieldSelect && len(field.Options) > 0 && !slices.Contains(field.Options, s) {
			return &FieldError{Name: name, Reason: "opción no válida"}
		}
		o.form.Values[name] = s
	}

	o.publishLocked()
	return nil
}

// SetOpen records whether the chat panel is visible. Opening it clears the
// unread flag.
func (o *Orchestrator) SetOpen(open bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = open
	if open {
		o.unread = false
	}
	o.publishLocked()
}

func (o *Orchestrator) ClearUnread() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unread = false
	o.publishLocked()
}

// SetMode switches the tool surface and system instruction. The provider
// session is dropped so the next turn starts under the new mode. It returns
// false, changing nothing, while a turn is running.
func (o *Orchestrator) SetMode(mode model.Mode) bool {
	o.mu.Lock()
	if mode == o.mode {
		o.mu.Unlock()
		return true
	}
	if o.busy {
		o.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Refusing mode change while a turn is running")
		}
		return false
	}
	o.mode = mode
	o.publishLocked()
	o.mu.Unlock()

	// Outside the lock: a stateful provider blocks Reset until its
	// in-flight request returns.
	o.provider.Reset()
	if r, ok := o.recorder.(interface{ SetMode(model.Mode) }); ok {
		r.SetMode(mode)
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Mode set to %s", mode)
	}
	return true
}

func (o *Orchestrator) Mode() model.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Restore replaces the log with a saved conversation. Stateless providers
// replay it on the next turn; stateful ones are reset and seeded from it.
func (o *Orchestrator) Restore(messages []model.Message) {
	o.mu.Lock()
	o.messages = nil
	o.transcript = nil
	for _, m := range messages {
		switch {
		case m.Sender == model.SenderTool:
		case m.Sender == model.SenderAssistant && m.Response == nil && m.Raw == "":
		case m.CorrelationID != "":
			// A placeholder that never resolved.
		default:
			o.messages = append(o.messages, m)
			o.transcript = append(o.transcript, m)
		}
	}
	o.form = model.DeriveActiveForm(o.messages, nil)
	o.publishLocked()
	o.mu.Unlock()

	o.provider.Reset()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		Messages:         append([]model.Message(nil), o.messages...),
		IsLoading:        o.busy,
		HasUnreadMessage: o.unread,
		Mode:             o.mode,
	}
	if o.form != nil {
		form := *o.form
		form.Values = make(map[string]any, len(o.form.Values))
		for k, v := range o.form.Values {
			form.Values[k] = v
		}
		s.ActiveForm = &form
	}
	return s
}

// Subscribe returns a channel that always holds the newest snapshot. Slow
// readers skip intermediate states. cancel closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- o.snapshotLocked()
	o.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (o *Orchestrator) publishLocked() {
	if len(o.subs) == 0 {
		return
	}
	s := o.snapshotLocked()
	for _, ch := range o.subs {
		select {
		case ch <- s:
		default:
			// Replace the stale snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
