package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/allbin/broute/internal/entries"
)

var errRadio = errors.New("radio unplugged")

// testHandler asks for a name and creates an entry keyed by it
type testHandler struct {
	flow    *Flow
	failNow bool
}

func (h *testHandler) Version() int { return 2 }

func (h *testHandler) schema() *Schema {
	return &Schema{Fields: []Field{
		{Key: "name", Required: true},
		{Key: "color", Options: []Option{{Value: "red", Label: "Red"}, {Value: "blue", Label: "Blue"}}},
	}}
}

func (h *testHandler) Step(ctx context.Context, stepID string, input map[string]string) (*Result, error) {
	switch stepID {
	case SourceUser:
		if input == nil {
			return h.flow.ShowForm("user", h.schema(), nil), nil
		}
		if h.failNow {
			h.failNow = false
			return nil, errRadio
		}
		if input["name"] == "bad" {
			return h.flow.ShowForm("user", h.schema(), map[string]string{"base": "invalid_auth"}), nil
		}
		if err := h.flow.SetUniqueID(ctx, input["name"], false); err != nil {
			return nil, err
		}
		if err := h.flow.AbortIfUniqueIDConfigured(ctx); err != nil {
			return nil, err
		}
		return h.flow.CreateEntry("Test "+input["name"], input), nil
	case SourceUSB:
		if err := h.flow.SetUniqueID(ctx, input["device"], true); err != nil {
			return nil, err
		}
		return h.flow.ShowForm("user", h.schema(), nil), nil
	case "nothing":
		return h.flow.Abort("not_supported"), nil
	}
	return nil, ErrUnknownStep
}

func newTestManager(t *testing.T) (*Manager, *entries.MemoryStore, map[string]*testHandler) {
	t.Helper()
	store := entries.NewMemoryStore()
	m := NewManager(store)
	handlers := make(map[string]*testHandler)
	m.Register("test", func(f *Flow) Handler {
		h := &testHandler{flow: f}
		handlers[f.ID()] = h
		return h
	})
	return m, store, handlers
}

func TestFlowCreatesEntry(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	res, err := m.Init(ctx, "test", Context{Source: SourceUser}, nil)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if res.Type != ResultForm || res.StepID != "user" {
		t.Fatalf("Init() = %s, want user form", res)
	}
	if res.FlowID == "" || res.Handler != "test" {
		t.Errorf("result missing flow identity: %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("fresh form has errors: %v", res.Errors)
	}
	if len(m.Progress()) != 1 {
		t.Fatalf("Progress() = %d flows, want 1", len(m.Progress()))
	}

	input := map[string]string{"name": "alice", "color": "red"}
	res, err = m.Configure(ctx, res.FlowID, input)
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if res.Type != ResultCreateEntry || res.Title != "Test alice" {
		t.Fatalf("Configure() = %s, want create_entry", res)
	}
	if res.Data["name"] != "alice" || res.Data["color"] != "red" {
		t.Errorf("Data = %v, want input", res.Data)
	}
	if res.Entry == nil || res.Entry.UniqueID != "alice" || res.Entry.Version != 2 || res.Entry.Source != SourceUser {
		t.Errorf("Entry = %+v", res.Entry)
	}
	if len(m.Progress()) != 0 {
		t.Error("finished flow still in progress")
	}

	list, _ := store.List(ctx, "test")
	if len(list) != 1 {
		t.Fatalf("store has %d entries, want 1", len(list))
	}
}

func TestFlowErrorsKeepForm(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	res, _ := m.Init(ctx, "test", Context{}, nil)
	res, err := m.Configure(ctx, res.FlowID, map[string]string{"name": "bad"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != ResultForm || res.Errors["base"] != "invalid_auth" {
		t.Fatalf("Configure() = %s, want form with invalid_auth", res)
	}

	res, err = m.Configure(ctx, res.FlowID, map[string]string{"name": "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != ResultCreateEntry {
		t.Errorf("retry = %s, want create_entry", res)
	}
}

func TestFlowHandlerErrorKeepsFlow(t *testing.T) {
	ctx := context.Background()
	m, _, handlers := newTestManager(t)

	res, _ := m.Init(ctx, "test", Context{}, nil)
	handlers[res.FlowID].failNow = true

	if _, err := m.Configure(ctx, res.FlowID, map[string]string{"name": "carol"}); !errors.Is(err, errRadio) {
		t.Fatalf("Configure() error = %v, want errRadio", err)
	}
	res, err := m.Configure(ctx, res.FlowID, map[string]string{"name": "carol"})
	if err != nil || res.Type != ResultCreateEntry {
		t.Fatalf("retry = %v, %v; want create_entry", res, err)
	}
}

func TestFlowAlreadyConfigured(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	if err := store.Add(ctx, &entries.Entry{Domain: "test", UniqueID: "alice"}); err != nil {
		t.Fatal(err)
	}

	res, _ := m.Init(ctx, "test", Context{}, nil)
	res, err := m.Configure(ctx, res.FlowID, map[string]string{"name": "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != ResultAbort || res.Reason != "already_configured" {
		t.Errorf("Configure() = %s, want abort already_configured", res)
	}
	if len(m.Progress()) != 0 {
		t.Error("aborted flow still in progress")
	}
}

func TestFlowAlreadyInProgress(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	first, err := m.Init(ctx, "test", Context{Source: SourceUSB}, map[string]string{"device": "/dev/ttyUSB0"})
	if err != nil || first.Type != ResultForm {
		t.Fatalf("first Init() = %v, %v", first, err)
	}

	second, err := m.Init(ctx, "test", Context{Source: SourceUSB}, map[string]string{"device": "/dev/ttyUSB0"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Type != ResultAbort || second.Reason != "already_in_progress" {
		t.Errorf("second Init() = %s, want abort already_in_progress", second)
	}

	progress := m.Progress()
	if len(progress) != 1 || progress[0].FlowID != first.FlowID || progress[0].UniqueID != "/dev/ttyUSB0" {
		t.Errorf("Progress() = %+v", progress)
	}
}

func TestFlowSchemaValidation(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	res, _ := m.Init(ctx, "test", Context{}, nil)

	tests := []struct {
		name       string
		input      map[string]string
		wantField  string
		wantReason string
	}{
		{"missing required", map[string]string{"color": "red"}, "name", "required"},
		{"empty required", map[string]string{"name": ""}, "name", "required"},
		{"unknown option", map[string]string{"name": "x", "color": "green"}, "color", "invalid_option"},
		{"extra key", map[string]string{"name": "x", "shape": "round"}, "shape", "extra_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Configure(ctx, res.FlowID, tt.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Configure() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField || verr.Reason != tt.wantReason {
				t.Errorf("ValidationError = %+v, want %s/%s", verr, tt.wantField, tt.wantReason)
			}
		})
	}
	if len(m.Progress()) != 1 {
		t.Error("invalid input must not end the flow")
	}
}

func TestManagerErrors(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	if _, err := m.Init(ctx, "missing", Context{}, nil); !errors.Is(err, ErrUnknownHandler) {
		t.Errorf("Init() error = %v, want ErrUnknownHandler", err)
	}
	if _, err := m.Configure(ctx, "nope", nil); !errors.Is(err, ErrUnknownFlow) {
		t.Errorf("Configure() error = %v, want ErrUnknownFlow", err)
	}
	if err := m.Abort("nope"); !errors.Is(err, ErrUnknownFlow) {
		t.Errorf("Abort() error = %v, want ErrUnknownFlow", err)
	}
	if _, err := m.Init(ctx, "test", Context{Source: "zeroconf"}, nil); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("Init() unknown source error = %v, want ErrUnknownStep", err)
	}
}

func TestManagerAbort(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	res, _ := m.Init(ctx, "test", Context{}, nil)
	if err := m.Abort(res.FlowID); err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if _, err := m.Configure(ctx, res.FlowID, map[string]string{"name": "x"}); !errors.Is(err, ErrUnknownFlow) {
		t.Errorf("Configure() after Abort error = %v, want ErrUnknownFlow", err)
	}
}

func TestSchemaField(t *testing.T) {
	s := &Schema{Fields: []Field{{Key: "device", Required: true}, {Key: "password", Secret: true}}}
	if f, ok := s.Field("password"); !ok || !f.Secret {
		t.Errorf("Field(password) = %+v, %v", f, ok)
	}
	if _, ok := s.Field("id"); ok {
		t.Error("Field(id) found in schema without it")
	}
	if got := s.Keys(); len(got) != 2 || got[0] != "device" || got[1] != "password" {
		t.Errorf("Keys() = %v", got)
	}
	var nilSchema *Schema
	if err := nilSchema.Validate(map[string]string{"x": "y"}); err != nil {
		t.Errorf("nil schema Validate() = %v", err)
	}
}

// aliasHandler accepts color aliases on top of testHandler
type aliasHandler struct {
	testHandler
}

func (h *aliasHandler) Normalize(_ string, input map[string]string) map[string]string {
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = v
	}
	if out["color"] == "crimson" {
		out["color"] = "red"
	}
	return out
}

func TestFlowNormalizesInputBeforeValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(entries.NewMemoryStore())
	m.Register("alias", func(f *Flow) Handler {
		return &aliasHandler{testHandler{flow: f}}
	})

	res, err := m.Init(ctx, "alias", Context{Source: SourceUser}, nil)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	input := map[string]string{"name": "carol", "color": "crimson"}
	res, err = m.Configure(ctx, res.FlowID, input)
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if res.Type != ResultCreateEntry {
		t.Fatalf("Configure() = %s, want create_entry", res)
	}
	if res.Data["color"] != "red" {
		t.Errorf("stored color = %q, want red", res.Data["color"])
	}
	if input["color"] != "crimson" {
		t.Error("caller input was modified")
	}
}
