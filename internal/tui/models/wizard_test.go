package models

import (
	"context"
	"testing"
	"time"

	"github.com/allbin/broute/internal/entries"
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/setup"
	"github.com/allbin/broute/internal/skstack"
	"github.com/allbin/broute/internal/tui/components"
	"github.com/allbin/broute/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	testID       = "0123456789ABCDEF0123456789ABCDEF"
	testPassword = "ABCDEFGHIJKL"
)

func twoPorts() ([]serialport.Device, error) {
	return []serialport.Device{
		{Path: "/dev/ttyUSB0", Name: "/dev/ttyUSB0, s/n: n/a"},
		{Path: "/dev/ttyUSB1", Name: "/dev/ttyUSB1, s/n: n/a"},
	}, nil
}

func newTestWizard(t *testing.T, lister setup.DeviceLister, validateErr error) (*Wizard, *entries.MemoryStore) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	store := entries.NewMemoryStore()
	m := flow.NewManager(store)
	m.Register(setup.Domain, setup.Factory(
		setup.WithDeviceLister(lister),
		setup.WithValidator(func(context.Context, string, string, string) error { return validateErr }),
	))
	w := NewWizard(m, WizardOptions{
		Domain:  setup.Domain,
		Context: flow.Context{Source: flow.SourceUser},
	})
	t.Cleanup(w.Cancel)
	w.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return w, store
}

// run executes cmd and feeds every message it yields back into the wizard
func run(t *testing.T, w *Wizard, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(t, w, c)...)
		}
		return out
	case FlowResultMsg:
		_, next := w.Update(msg)
		return append([]tea.Msg{msg}, run(t, w, next)...)
	default:
		return []tea.Msg{msg}
	}
}

func start(t *testing.T, w *Wizard) {
	t.Helper()
	run(t, w, w.startFlow())
}

func TestWizardShowsForm(t *testing.T) {
	w, _ := newTestWizard(t, twoPorts, nil)
	start(t, w)

	if w.Result() == nil || w.Result().Type != flow.ResultForm {
		t.Fatalf("result = %v, want form", w.Result())
	}
	if got := w.devices.Selected(); got != "/dev/ttyUSB0" {
		t.Errorf("selected device = %q, want /dev/ttyUSB0", got)
	}
	if got := w.statusBar.Status(); got != styles.StatusForm {
		t.Errorf("status = %v, want %v", got, styles.StatusForm)
	}
	if w.focus != focusDevice || !w.devices.Focused() {
		t.Error("device table should hold focus first")
	}
}

func TestWizardFocusCycle(t *testing.T) {
	w, _ := newTestWizard(t, twoPorts, nil)
	start(t, w)

	tab := tea.KeyMsg{Type: tea.KeyTab}
	want := []int{focusID, focusPassword, focusSubmit, focusDevice}
	for _, f := range want {
		w.Update(tab)
		if w.focus != f {
			t.Fatalf("focus = %d, want %d", w.focus, f)
		}
	}

	w.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := w.devices.Selected(); got != "/dev/ttyUSB1" {
		t.Errorf("selected device after move = %q, want /dev/ttyUSB1", got)
	}
}

func TestWizardCreatesEntry(t *testing.T) {
	w, store := newTestWizard(t, twoPorts, nil)
	start(t, w)

	w.id.SetValue(testID)
	w.password.SetValue(testPassword)
	w.setFocus(focusSubmit)

	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := w.statusBar.Status(); got != styles.StatusValidating {
		t.Errorf("status after submit = %v, want %v", got, styles.StatusValidating)
	}
	run(t, w, cmd)

	res := w.Result()
	if res == nil || res.Type != flow.ResultCreateEntry {
		t.Fatalf("result = %v, want create_entry", res)
	}
	if got := w.statusBar.Status(); got != styles.StatusDone {
		t.Errorf("status = %v, want %v", got, styles.StatusDone)
	}

	list, err := store.List(context.Background(), setup.Domain)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Data[setup.ConfPassword] != testPassword {
		t.Errorf("stored entries = %+v", list)
	}
}

func TestWizardTakesLongCredentials(t *testing.T) {
	w, _ := newTestWizard(t, twoPorts, nil)
	start(t, w)

	long := map[int]string{
		focusID:       testID + "0123",
		focusPassword: "B_ROUTE_PASSWORD",
	}
	for f, value := range long {
		w.setFocus(f)
		w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)})
	}
	if got := w.id.Value(); got != long[focusID] {
		t.Errorf("id = %q, want %q", got, long[focusID])
	}
	if got := w.password.Value(); got != long[focusPassword] {
		t.Errorf("password = %q, want %q", got, long[focusPassword])
	}
}

func TestWizardShowsBaseError(t *testing.T) {
	w, store := newTestWizard(t, twoPorts, skstack.ErrScanFailure)
	start(t, w)

	w.id.SetValue(testID)
	w.password.SetValue(testPassword)
	w.setFocus(focusSubmit)
	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, w, cmd)

	if res := w.Result(); res == nil || res.Type != flow.ResultForm {
		t.Fatalf("result = %v, want form", res)
	}
	if want := i18n.T("error." + setup.ErrorCannotConnect); w.baseError != want {
		t.Errorf("base error = %q, want %q", w.baseError, want)
	}
	if list, _ := store.List(context.Background(), setup.Domain); len(list) != 0 {
		t.Errorf("no entry expected, got %d", len(list))
	}
}

func TestWizardAbortsWithoutDevices(t *testing.T) {
	none := func() ([]serialport.Device, error) { return nil, nil }
	w, _ := newTestWizard(t, none, nil)
	start(t, w)

	if res := w.Result(); res == nil || res.Type != flow.ResultAbort {
		t.Fatalf("result = %v, want abort", res)
	}
	if got := w.statusBar.Status(); got != styles.StatusFailed {
		t.Errorf("status = %v, want %v", got, styles.StatusFailed)
	}
	if want := i18n.T("abort." + setup.AbortNoDevices); w.statusBar.Message() != want {
		t.Errorf("message = %q, want %q", w.statusBar.Message(), want)
	}

	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on a finished flow should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestWizardIgnoresKeysWhileValidating(t *testing.T) {
	w, _ := newTestWizard(t, twoPorts, nil)
	// no flow result yet
	w.Update(tea.KeyMsg{Type: tea.KeyTab})
	if w.focus != focusDevice {
		t.Errorf("focus moved while validating: %d", w.focus)
	}
}

func TestWizardTraces(t *testing.T) {
	traces := make(chan components.TraceMsg, 1)
	w, _ := newTestWizard(t, twoPorts, nil)
	w.opts.Traces = traces

	traces <- components.TraceMsg{Timestamp: time.Now(), Dir: skstack.TX, Line: "SKVER"}
	msg := w.listenTraces()()
	trace, ok := msg.(components.TraceMsg)
	if !ok {
		t.Fatalf("got %T, want TraceMsg", msg)
	}

	before := w.transcript.Lines()
	_, next := w.Update(trace)
	if w.transcript.Lines() != before+1 {
		t.Errorf("transcript lines = %d, want %d", w.transcript.Lines(), before+1)
	}
	if next == nil {
		t.Error("trace listener should rearm")
	}

	close(traces)
	if msg := w.listenTraces()(); msg != nil {
		t.Errorf("closed channel yielded %v", msg)
	}
}

func TestWizardQuitCancels(t *testing.T) {
	w, _ := newTestWizard(t, twoPorts, nil)
	start(t, w)

	_, cmd := w.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
	if w.ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
	if len(w.manager.Progress()) != 0 {
		t.Error("unfinished flow should be aborted on quit")
	}
}
