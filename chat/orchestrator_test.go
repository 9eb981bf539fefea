package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"fieldreport/agent"
	"fieldreport/model"
	"fieldreport/provider"
	"fieldreport/provider/testutil"
	"fieldreport/storage"
	"fieldreport/tools"
)

func newTestDB(t *testing.T) *storage.SQLiteDatabase {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for i := 1; i <= 50; i++ {
		if _, err := db.DB().Exec(`INSERT INTO Empresa (id, nombre) VALUES (?, ?)`, i, fmt.Sprintf("Empresa %d", i)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

type fakeAgent struct {
	mu      sync.Mutex
	submits []map[string]any
	queries []string

	reply   string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAgent) Query(_ context.Context, consulta string) (json.RawMessage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, consulta)
	f.mu.Unlock()
	return json.RawMessage(f.reply), f.err
}

func (f *fakeAgent) Submit(_ context.Context, data map[string]any) (json.RawMessage, error) {
	f.mu.Lock()
	f.submits = append(f.submits, data)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return json.RawMessage(f.reply), f.err
}

type memoryRecorder struct {
	mu    sync.Mutex
	saves int
	last  []model.Message
}

func (r *memoryRecorder) Record(messages []model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.last = append([]model.Message(nil), messages...)
	return nil
}

func lastResponse(t *testing.T, o *Orchestrator) model.AssistantResponse {
	t.Helper()
	snap := o.Snapshot()
	if len(snap.Messages) == 0 {
		t.Fatal("message log is empty")
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != model.SenderAssistant || last.Response == nil {
		t.Fatalf("last message = %+v, want assistant response", last)
	}
	return *last.Response
}

func TestScenarioCountCompanies(t *testing.T) {
	db := newTestDB(t)
	mock := testutil.NewMockProvider("mock",
		testutil.Calls(testutil.CountCall("call-1", "Empresa")),
		testutil.Final(`{"displayText":"Hay 50 empresas registradas en total."}`),
	)
	rec := &memoryRecorder{}
	o := New(Options{
		Provider: mock,
		Tools:    tools.NewExecutor(db, nil),
		Recorder: rec,
		Mode:     model.ModeDirect,
	})

	if !o.SendMessage(context.Background(), "¿Cuántas empresas hay en total?") {
		t.Fatal("SendMessage() = false")
	}

	resp := lastResponse(t, o)
	if !strings.Contains(resp.DisplayText, "50") {
		t.Errorf("DisplayText = %q, want the count", resp.DisplayText)
	}
	if resp.StatusDisplay != nil {
		t.Errorf("StatusDisplay = %+v, want nil", resp.StatusDisplay)
	}

	sends := mock.Sends()
	if len(sends) != 1 {
		t.Fatalf("got %d sends, want 1", len(sends))
	}
	if len(sends[0].Tools) != len(tools.DirectTools()) {
		t.Errorf("sent %d tools, want the direct tool set", len(sends[0].Tools))
	}
	if sends[0].System != provider.SystemInstruction(model.ModeDirect) {
		t.Error("direct system instruction not used")
	}

	continues := mock.Continues()
	if len(continues) != 1 {
		t.Fatalf("got %d continues, want 1", len(continues))
	}
	results := continues[0].Results
	if len(results) != 1 || results[0].ToolCallID != "call-1" {
		t.Fatalf("results = %+v, want one result for call-1", results)
	}
	if got := gjson.Get(results[0].PayloadJSON(), "data.0.count").Int(); got != 50 {
		t.Errorf("count = %d, want 50 (payload %s)", got, results[0].PayloadJSON())
	}
	hist := continues[0].History
	if last := hist[len(hist)-1]; len(last.PendingToolCalls) != 1 {
		t.Errorf("continue history does not end with the tool-call turn: %+v", last)
	}

	snap := o.Snapshot()
	if len(snap.Messages) != 2 {
		t.Errorf("log has %d messages, want user + assistant", len(snap.Messages))
	}
	if snap.IsLoading {
		t.Error("IsLoading still set")
	}
	if rec.last == nil || len(rec.last) != 2 {
		t.Errorf("recorder holds %d messages, want 2", len(rec.last))
	}
}

func TestFollowUpReplaysToolExchange(t *testing.T) {
	mock := testutil.NewMockProvider("mock",
		testutil.Calls(testutil.CountCall("call-1", "Empresa")),
		testutil.Final(`{"displayText":"Hay 50."}`),
		testutil.Final(`{"displayText":"Hay 3 plantas."}`),
	)
	o := New(Options{Provider: mock, Tools: tools.NewExecutor(newTestDB(t), nil)})
	ctx := context.Background()

	o.SendMessage(ctx, "¿Cuántas empresas hay?")
	o.SendMessage(ctx, "¿Y plantas?")

	sends := mock.Sends()
	if len(sends) != 2 {
		t.Fatalf("got %d sends, want 2", len(sends))
	}
	var senders []string
	for _, m := range sends[1].History {
		senders = append(senders, string(m.Sender))
	}
	if got := strings.Join(senders, ","); got != "user,assistant,tool,assistant" {
		t.Errorf("second turn history = %s", got)
	}
	if sends[1].Prompt != "¿Y plantas?" {
		t.Errorf("prompt = %q", sends[1].Prompt)
	}
}

func TestScenarioFormSubmission(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- data
		io.WriteString(w, `{"error":false,"contexto":"Planta creada","data":[{"id":7,"nombre":"Planta X"}]}`)
	}))
	defer srv.Close()

	mock := testutil.NewMockProvider("mock")
	o := New(Options{Provider: mock, Agent: agent.NewClient(srv.URL, 0, 0)})
	o.Restore([]model.Message{
		model.UserMessage("Quiero crear una planta"),
		model.AssistantMessage(model.AssistantResponse{
			DisplayText: "Completa el formulario",
			Form: model.Form{
				{Type: model.FieldText, Name: "nombre", Label: "Nombre"},
				{Type: model.FieldSelect, Name: "id_empresa", Label: "Empresa", Options: []string{"1: ACME", "2: Minera Sur"}},
			},
		}),
	})

	if err := o.SetFormValue("nombre", "Planta X"); err != nil {
		t.Fatal(err)
	}
	if err := o.SetFormValue("id_empresa", "2: Minera Sur"); err != nil {
		t.Fatal(err)
	}
	if !o.SubmitActiveForm(context.Background()) {
		t.Fatal("SubmitActiveForm() = false")
	}

	if len(mock.Sends()) != 0 {
		t.Error("form submission reached the provider")
	}
	received := gjson.ParseBytes(<-bodies)
	if got := received.Get("key").String(); got != "agente" {
		t.Errorf("key = %q", got)
	}
	if got := received.Get("consulta.data.nombre").String(); got != "Planta X" {
		t.Errorf("nombre = %q", got)
	}
	if v := received.Get("consulta.data.id_empresa"); v.Type != gjson.Number || v.Int() != 2 {
		t.Errorf("id_empresa = %s, want the numeric id", v.Raw)
	}

	snap := o.Snapshot()
	if len(snap.Messages) != 4 {
		t.Fatalf("log has %d messages, want 4", len(snap.Messages))
	}
	if !strings.HasPrefix(snap.Messages[2].Text, FormSubmissionPrefix) {
		t.Errorf("user turn = %q", snap.Messages[2].Text)
	}
	resp := lastResponse(t, o)
	if resp.StatusDisplay == nil || resp.StatusDisplay.Icon != model.IconSuccess {
		t.Errorf("StatusDisplay = %+v, want success", resp.StatusDisplay)
	}
	if resp.Table == nil || len(resp.Table.Rows) != 1 {
		t.Errorf("Table = %+v, want one row", resp.Table)
	}
	if snap.Messages[3].CorrelationID != "" {
		t.Error("placeholder was not replaced")
	}
	if snap.ActiveForm != nil {
		t.Error("ActiveForm survived the submission")
	}
}

func TestFormPlaceholderIsReplacedInPlace(t *testing.T) {
	fa := &fakeAgent{
		reply:   `{"error":false,"contexto":"Informe guardado","data":{"id":3}}`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := New(Options{Provider: testutil.NewMockProvider("mock"), Agent: fa})

	done := make(chan bool)
	go func() {
		done <- o.Submit(context.Background(), model.FormSubmission(map[string]any{"observacion": "ok"}))
	}()
	<-fa.started

	snap := o.Snapshot()
	if !snap.IsLoading {
		t.Error("IsLoading not set while the agent is working")
	}
	if len(snap.Messages) != 2 || snap.Messages[1].CorrelationID == "" {
		t.Fatalf("log = %+v, want user + placeholder", snap.Messages)
	}
	if o.SendMessage(context.Background(), "otra cosa") {
		t.Error("submission accepted while busy")
	}

	close(fa.release)
	if !<-done {
		t.Fatal("Submit() = false")
	}

	snap = o.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("log has %d messages, want placeholder replaced", len(snap.Messages))
	}
	if got := snap.Messages[1].Response.DisplayText; got != "Informe guardado" {
		t.Errorf("DisplayText = %q", got)
	}
}

func TestFormSubmissionAgentErrors(t *testing.T) {
	tests := []struct {
		name      string
		agent     tools.AgentClient
		wantTitle string
	}{
		{"exhausted", &fakeAgent{err: agent.ErrAgentUnavailable}, "Agente no disponible"},
		{"async webhook", &fakeAgent{err: agent.ErrAsyncWebhook}, "Webhook mal configurado"},
		{"no agent", nil, "Servicio no configurado"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(Options{Provider: testutil.NewMockProvider("mock"), Agent: tt.agent})
			o.Submit(context.Background(), model.FormSubmission(map[string]any{"a": 1}))

			resp := lastResponse(t, o)
			if resp.StatusDisplay == nil || resp.StatusDisplay.Icon != model.IconError {
				t.Fatalf("StatusDisplay = %+v, want error", resp.StatusDisplay)
			}
			if resp.StatusDisplay.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", resp.StatusDisplay.Title, tt.wantTitle)
			}
		})
	}
}

func TestParseFormSubmission(t *testing.T) {
	tests := []struct {
		text   string
		wantOK bool
	}{
		{FormSubmissionPrefix + ` {"nombre":"Planta X"}`, true},
		{FormSubmissionPrefix + `{"a":1}`, true},
		{FormSubmissionPrefix + ` y además quiero otra cosa`, false},
		{FormSubmissionPrefix + ` [1,2]`, false},
		{`{"nombre":"Planta X"}`, false},
		{`Hola, ` + FormSubmissionPrefix + ` {}`, false},
	}
	for _, tt := range tests {
		_, ok := ParseFormSubmission(tt.text)
		if ok != tt.wantOK {
			t.Errorf("ParseFormSubmission(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
		}
	}

	payload, _ := ParseFormSubmission(FormSubmissionText(map[string]any{"id_empresa": float64(2)}))
	if payload["id_empresa"] != float64(2) {
		t.Errorf("round trip payload = %v", payload)
	}
}

func TestPrefixedTextTakesFormPath(t *testing.T) {
	fa := &fakeAgent{reply: `{"error":false,"contexto":"ok","data":[]}`}
	mock := testutil.NewMockProvider("mock")
	o := New(Options{Provider: mock, Agent: fa})

	o.SendMessage(context.Background(), FormSubmissionPrefix+` {"nombre":"Planta X"}`)

	if len(mock.Sends()) != 0 {
		t.Error("prefixed text reached the provider")
	}
	if len(fa.submits) != 1 || fa.submits[0]["nombre"] != "Planta X" {
		t.Errorf("submits = %v", fa.submits)
	}
}

func TestBusyDropsSubmissions(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mock := testutil.NewMockProvider("mock")
	mock.SendFunc = func(ctx context.Context, _ []model.Message, _ string, _ []mcptypes.Tool, _ string) (*model.Turn, error) {
		close(started)
		<-release
		return &model.Turn{FinalText: `{"displayText":"listo"}`}, nil
	}
	o := New(Options{Provider: mock})

	done := make(chan bool)
	go func() { done <- o.SendMessage(context.Background(), "primera") }()
	<-started

	if o.SendMessage(context.Background(), "segunda") {
		t.Error("second message accepted while busy")
	}
	if o.SubmitActiveForm(context.Background()) {
		t.Error("form submitted without an active form")
	}
	close(release)
	if !<-done {
		t.Fatal("first SendMessage() = false")
	}

	snap := o.Snapshot()
	if len(snap.Messages) != 2 {
		t.Errorf("log has %d messages, want 2", len(snap.Messages))
	}
	if o.SendMessage(context.Background(), "   ") {
		t.Error("blank message accepted")
	}
}

func TestDeleteRequestIsRefused(t *testing.T) {
	runner := &countingRunner{}
	mock := testutil.NewMockProvider("mock",
		testutil.Calls(
			testutil.CountCall("call-1", "Planta"),
			model.ToolCall{ID: "call-2", Name: "mutate_database", Arguments: map[string]any{"action_type": "DELETE", "table": "Planta"}},
		),
	)
	o := New(Options{Provider: mock, Tools: runner})

	o.SendMessage(context.Background(), "Borra la planta 3")

	if runner.batches != 0 {
		t.Errorf("executed %d batches, want none", runner.batches)
	}
	if len(mock.Continues()) != 0 {
		t.Error("provider was continued after a delete request")
	}
	resp := lastResponse(t, o)
	if !strings.Contains(resp.DisplayText, "eliminar") {
		t.Errorf("DisplayText = %q, want refusal", resp.DisplayText)
	}
	if mock.Resets() == 0 {
		t.Error("provider not reset after abandoning the tool calls")
	}
}

type countingRunner struct {
	mu      sync.Mutex
	batches int
}

func (r *countingRunner) ExecuteAll(_ context.Context, calls []model.ToolCall, _ model.Mode) []model.ToolResult {
	r.mu.Lock()
	r.batches++
	r.mu.Unlock()
	results := make([]model.ToolResult, len(calls))
	for i, c := range calls {
		results[i] = model.ToolResult{ToolCallID: c.ID, Name: c.Name, Payload: map[string]any{"data": []any{}}}
	}
	return results
}

func TestToolLoopIsCapped(t *testing.T) {
	runner := &countingRunner{}
	mock := testutil.NewMockProvider("mock")
	n := 0
	loop := func() (*model.Turn, error) {
		n++
		return &model.Turn{ToolCalls: []model.ToolCall{testutil.CountCall(fmt.Sprintf("call-%d", n), "Empresa")}}, nil
	}
	mock.SendFunc = func(context.Context, []model.Message, string, []mcptypes.Tool, string) (*model.Turn, error) {
		return loop()
	}
	mock.ContinueFunc = func(context.Context, []model.Message, []model.ToolResult) (*model.Turn, error) {
		return loop()
	}
	o := New(Options{Provider: mock, Tools: runner, MaxToolRounds: 3})

	o.SendMessage(context.Background(), "¿Cuántas?")

	if runner.batches != 3 {
		t.Errorf("ran %d batches, want 3", runner.batches)
	}
	resp := lastResponse(t, o)
	if resp.StatusDisplay == nil || resp.StatusDisplay.Icon != model.IconWarning {
		t.Errorf("StatusDisplay = %+v, want warning", resp.StatusDisplay)
	}
	if !strings.Contains(resp.DisplayText, "no pude completar") {
		t.Errorf("DisplayText = %q", resp.DisplayText)
	}
	if o.Snapshot().IsLoading {
		t.Error("IsLoading still set after the cap")
	}
}

func TestTurnErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
	}{
		{"agent exhausted", fmt.Errorf("tool: %w", agent.ErrAgentUnavailable), "Agente no disponible"},
		{"malformed", fmt.Errorf("%w: no choices", provider.ErrMalformedPayload), "Respuesta inválida"},
		{"not configured", fmt.Errorf("%w: missing key", provider.ErrNotConfigured), "Servicio no configurado"},
		{"generic", errors.New("connection reset by peer"), "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider("mock", testutil.Fail(tt.err))
			o := New(Options{Provider: mock})

			if !o.SendMessage(context.Background(), "hola") {
				t.Fatal("SendMessage() = false")
			}

			resp := lastResponse(t, o)
			if resp.StatusDisplay == nil || resp.StatusDisplay.Icon != model.IconError {
				t.Fatalf("StatusDisplay = %+v, want error", resp.StatusDisplay)
			}
			if resp.StatusDisplay.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", resp.StatusDisplay.Title, tt.wantTitle)
			}
			if o.Snapshot().IsLoading {
				t.Error("IsLoading still set after an error")
			}
		})
	}
}

func TestFailedTurnIsNotReplayed(t *testing.T) {
	mock := testutil.NewMockProvider("mock",
		testutil.Fail(errors.New("boom")),
		testutil.Final(`{"displayText":"ok"}`),
	)
	o := New(Options{Provider: mock})
	ctx := context.Background()

	o.SendMessage(ctx, "primera")
	o.SendMessage(ctx, "segunda")

	sends := mock.Sends()
	if len(sends[1].History) != 0 {
		t.Errorf("history after a failed turn = %+v, want empty", sends[1].History)
	}
}

func TestUnreadFlag(t *testing.T) {
	mock := testutil.NewMockProvider("mock",
		testutil.Final(`{"displayText":"uno"}`),
		testutil.Final(`{"displayText":"dos"}`),
	)
	o := New(Options{Provider: mock})
	ctx := context.Background()

	o.SendMessage(ctx, "hola")
	if !o.Snapshot().HasUnreadMessage {
		t.Error("unread not set while closed")
	}

	o.SetOpen(true)
	if o.Snapshot().HasUnreadMessage {
		t.Error("opening did not clear unread")
	}

	o.SendMessage(ctx, "otra")
	if o.Snapshot().HasUnreadMessage {
		t.Error("unread set while open")
	}

	o.SetOpen(false)
	o.ClearUnread()
	if o.Snapshot().HasUnreadMessage {
		t.Error("ClearUnread did not clear")
	}
}

func TestActiveFormTracking(t *testing.T) {
	formResp := `{"displayText":"Completa","form":[{"type":"text","name":"nombre","label":"Nombre"},{"type":"checkbox","name":"activa","label":"Activa"}]}`
	mock := testutil.NewMockProvider("mock",
		testutil.Final(formResp),
		testutil.Final(`{"displayText":"Sin formulario"}`),
	)
	o := New(Options{Provider: mock})
	ctx := context.Background()

	o.SendMessage(ctx, "Nueva planta")
	form := o.Snapshot().ActiveForm
	if form == nil || len(form.Fields) != 2 {
		t.Fatalf("ActiveForm = %+v, want two fields", form)
	}
	if form.Values["nombre"] != "" || form.Values["activa"] != false {
		t.Errorf("default values = %v", form.Values)
	}

	if err := o.SetFormValue("activa", true); err != nil {
		t.Fatal(err)
	}
	if err := o.SetFormValue("activa", "si"); err == nil {
		t.Error("checkbox accepted a string")
	}
	if err := o.SetFormValue("otro", "x"); err == nil {
		t.Error("unknown field accepted")
	}
	if got := o.Snapshot().ActiveForm.Values["activa"]; got != true {
		t.Errorf("activa = %v", got)
	}

	// Snapshots are copies.
	o.Snapshot().ActiveForm.Values["nombre"] = "mutado"
	if got := o.Snapshot().ActiveForm.Values["nombre"]; got != "" {
		t.Errorf("snapshot mutation leaked: %v", got)
	}

	o.SendMessage(ctx, "olvídalo")
	if o.Snapshot().ActiveForm != nil {
		t.Error("ActiveForm not cleared by a newer message without form")
	}
	if err := o.SetFormValue("nombre", "x"); !errors.Is(err, ErrNoActiveForm) {
		t.Errorf("SetFormValue() error = %v, want ErrNoActiveForm", err)
	}
}

func TestSetModeSwitchesToolSurface(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testutil.Final(`{"displayText":"ok"}`))
	o := New(Options{Provider: mock})

	o.SetMode(model.ModeAgent)
	o.SetMode(model.ModeAgent)
	if mock.Resets() != 1 {
		t.Errorf("resets = %d, want 1", mock.Resets())
	}

	o.SendMessage(context.Background(), "hola")
	send := mock.Sends()[0]
	if len(send.Tools) != len(tools.AgentTools()) {
		t.Errorf("sent %d tools, want the agent tool set", len(send.Tools))
	}
	if send.System != provider.SystemInstruction(model.ModeAgent) {
		t.Error("agent system instruction not used")
	}
	if o.Snapshot().Mode != model.ModeAgent {
		t.Error("snapshot mode not updated")
	}
}

func TestSetModeRefusedDuringTurn(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mock := testutil.NewMockProvider("mock")
	mock.SendFunc = func(ctx context.Context, _ []model.Message, _ string, _ []mcptypes.Tool, _ string) (*model.Turn, error) {
		close(started)
		<-release
		return &model.Turn{FinalText: `{"displayText":"listo"}`}, nil
	}
	o := New(Options{Provider: mock})

	done := make(chan bool)
	go func() { done <- o.SendMessage(context.Background(), "hola") }()
	<-started

	if o.SetMode(model.ModeAgent) {
		t.Error("mode change accepted while a turn is running")
	}
	if o.Mode() != model.ModeDirect {
		t.Errorf("mode = %s, want direct", o.Mode())
	}
	if mock.Resets() != 0 {
		t.Errorf("provider reset %d times during the turn", mock.Resets())
	}

	close(release)
	<-done

	if !o.SetMode(model.ModeAgent) {
		t.Error("mode change refused after the turn ended")
	}
	if o.Mode() != model.ModeAgent {
		t.Errorf("mode = %s, want agent", o.Mode())
	}
}

func TestRestoreDropsUnresolvedPlaceholders(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testutil.Final(`{"displayText":"ok"}`))
	o := New(Options{Provider: mock})

	placeholder := model.AssistantMessage(processingResponse())
	placeholder.CorrelationID = "pending"
	o.Restore([]model.Message{
		model.UserMessage("hola"),
		model.AssistantMessage(model.AssistantResponse{DisplayText: "buenas"}),
		model.UserMessage("formulario"),
		placeholder,
	})

	if got := len(o.Snapshot().Messages); got != 3 {
		t.Errorf("restored %d messages, want 3", got)
	}

	o.SendMessage(context.Background(), "sigue")
	if got := len(mock.Sends()[0].History); got != 3 {
		t.Errorf("history = %d messages, want 3", got)
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testutil.Final(`{"displayText":"ok"}`))
	o := New(Options{Provider: mock})

	ch, cancel := o.Subscribe()
	if initial := <-ch; len(initial.Messages) != 0 {
		t.Errorf("initial snapshot has %d messages", len(initial.Messages))
	}

	o.SendMessage(context.Background(), "hola")

	// Several states were published; only the newest is buffered.
	latest := <-ch
	if len(latest.Messages) != 2 || latest.IsLoading {
		t.Errorf("latest snapshot = %+v", latest)
	}
	select {
	case s := <-ch:
		t.Errorf("stale snapshot still buffered: %+v", s)
	default:
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel not closed by cancel")
	}
}
