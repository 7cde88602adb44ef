// Package models holds the bubbletea models of the interactive commands.
package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/setup"
	"github.com/allbin/broute/internal/tui/components"
	"github.com/allbin/broute/internal/tui/keys"
	"github.com/allbin/broute/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// focus targets in tab order
const (
	focusDevice = iota
	focusID
	focusPassword
	focusSubmit
	focusCount
)

// FlowResultMsg carries the outcome of a flow call
type FlowResultMsg struct {
	Result *flow.Result
	Err    error
}

// WizardOptions configures the setup wizard
type WizardOptions struct {
	Domain     string
	Context    flow.Context
	Data       map[string]string
	Traces     <-chan components.TraceMsg
	Connection *components.ConnectionInfo
}

// Wizard drives a config flow from a terminal form
type Wizard struct {
	manager *flow.Manager
	opts    WizardOptions

	flowID string
	result *flow.Result
	err    error
	schema *flow.Schema

	devices    *components.DeviceTable
	id         *components.Field
	password   *components.Field
	focus      int
	baseError  string
	transcript *components.Transcript
	statusBar  *components.StatusBar
	spinner    spinner.Model
	help       help.Model
	keys       keys.WizardKeys

	width, height int
	ready         bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewWizard(manager *flow.Manager, opts WizardOptions) *Wizard {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	w := &Wizard{
		manager:    manager,
		opts:       opts,
		devices:    components.NewDeviceTable(80),
		id:         components.NewField(setup.ConfID, i18n.T("field.id"), false, 0),
		password:   components.NewField(setup.ConfPassword, i18n.T("field.password"), true, 0),
		transcript: components.NewTranscript(80, 10),
		statusBar:  components.NewStatusBar("broute setup"),
		spinner:    sp,
		help:       help.New(),
		keys:       keys.NewWizardKeys(),
		ctx:        ctx,
		cancel:     cancel,
	}
	w.statusBar.SetConnectionInfo(opts.Connection)
	w.statusBar.SetStatus(styles.StatusValidating, i18n.T("status.validating"), nil)
	return w
}

// Result is the last flow result, nil when the flow never started
func (w *Wizard) Result() *flow.Result {
	return w.result
}

// Err is the last error returned by the flow manager
func (w *Wizard) Err() error {
	return w.err
}

// Cancel stops pending radio work and drops an unfinished flow
func (w *Wizard) Cancel() {
	w.cancel()
	if w.flowID != "" && w.result != nil && w.result.Type == flow.ResultForm {
		_ = w.manager.Abort(w.flowID)
	}
}

func (w *Wizard) Init() tea.Cmd {
	return tea.Batch(w.startFlow(), w.listenTraces(), w.spinner.Tick)
}

func (w *Wizard) startFlow() tea.Cmd {
	return func() tea.Msg {
		res, err := w.manager.Init(w.ctx, w.opts.Domain, w.opts.Context, w.opts.Data)
		return FlowResultMsg{Result: res, Err: err}
	}
}

func (w *Wizard) submit() tea.Cmd {
	input := map[string]string{
		setup.ConfDevice:   w.devices.Selected(),
		setup.ConfID:       strings.TrimSpace(w.id.Value()),
		setup.ConfPassword: w.password.Value(),
	}
	flowID := w.flowID
	return func() tea.Msg {
		res, err := w.manager.Configure(w.ctx, flowID, input)
		return FlowResultMsg{Result: res, Err: err}
	}
}

// listenTraces forwards one radio line, then rearms itself
func (w *Wizard) listenTraces() tea.Cmd {
	if w.opts.Traces == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg, ok := <-w.opts.Traces:
			if !ok {
				return nil
			}
			return msg
		case <-w.ctx.Done():
			return nil
		}
	}
}

func (w *Wizard) validating() bool {
	return w.statusBar.Status() == styles.StatusValidating
}

func (w *Wizard) finished() bool {
	s := w.statusBar.Status()
	return s == styles.StatusDone || s == styles.StatusFailed
}

func (w *Wizard) setFocus(i int) tea.Cmd {
	w.focus = (i + focusCount) % focusCount
	w.devices.Blur()
	w.id.Blur()
	w.password.Blur()
	switch w.focus {
	case focusDevice:
		w.devices.Focus()
	case focusID:
		return w.id.Focus()
	case focusPassword:
		return w.password.Focus()
	}
	return nil
}

func (w *Wizard) note(text string, isError bool) {
	w.transcript.AddNote(components.NoteMsg{Timestamp: time.Now(), Text: text, IsError: isError})
}

func (w *Wizard) applyResult(msg FlowResultMsg) tea.Cmd {
	if msg.Err != nil {
		var verr *flow.ValidationError
		if errors.As(msg.Err, &verr) {
			w.statusBar.SetStatus(styles.StatusForm, msg.Err.Error(), msg.Err)
			w.note(msg.Err.Error(), true)
			return nil
		}
		w.err = msg.Err
		w.statusBar.SetStatus(styles.StatusFailed, msg.Err.Error(), msg.Err)
		w.note(msg.Err.Error(), true)
		return nil
	}

	res := msg.Result
	w.result = res
	w.flowID = res.FlowID

	switch res.Type {
	case flow.ResultForm:
		w.showForm(res)
		return w.setFocus(w.focus)

	case flow.ResultCreateEntry:
		text := res.Title
		if res.Entry != nil {
			text = i18n.Tf("status.created", map[string]any{"Title": res.Title, "EntryID": res.Entry.EntryID})
		}
		w.statusBar.SetStatus(styles.StatusDone, text, nil)
		w.note(text, false)
		return nil

	case flow.ResultAbort:
		reason := i18n.T("abort." + res.Reason)
		w.statusBar.SetStatus(styles.StatusFailed, reason, errors.New(res.Reason))
		w.note(reason, true)
		return nil
	}
	return nil
}

func (w *Wizard) showForm(res *flow.Result) {
	w.schema = res.Schema
	if f, ok := res.Schema.Field(setup.ConfDevice); ok {
		w.devices.SetOptions(f.Options, f.Default)
		w.statusBar.SetDevice(w.devices.Selected())
	}

	w.baseError = ""
	w.id.SetError("")
	w.password.SetError("")
	for field, code := range res.Errors {
		text := i18n.T("error." + code)
		switch field {
		case setup.ConfID:
			w.id.SetError(text)
		case setup.ConfPassword:
			w.password.SetError(text)
		default:
			w.baseError = text
		}
	}

	if len(res.Errors) > 0 {
		w.statusBar.SetStatus(styles.StatusForm, i18n.T("step.user.title"), errors.New("invalid input"))
		if w.baseError != "" {
			w.note(w.baseError, true)
		}
	} else {
		w.statusBar.SetStatus(styles.StatusForm, i18n.T("step.user.title"), nil)
	}
}

func (w *Wizard) resize(width, height int) {
	w.width, w.height = width, height
	w.statusBar.SetWidth(width)
	w.devices.SetWidth(width - 16)
	w.id.SetWidth(width)
	w.password.SetWidth(width)
	w.help.Width = width

	used := lipgloss.Height(w.formView()) + 2
	transcriptHeight := height - used - 1
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	w.transcript.SetSize(width, transcriptHeight)
	w.ready = true
}

func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.resize(msg.Width, msg.Height)

	case FlowResultMsg:
		cmds = append(cmds, w.applyResult(msg))
		if w.ready {
			w.resize(w.width, w.height)
		}

	case components.TraceMsg:
		w.transcript.AddTrace(msg)
		cmds = append(cmds, w.listenTraces())

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, w.keys.Quit):
			w.Cancel()
			return w, tea.Quit
		case w.finished():
			if key.Matches(msg, w.keys.Submit) {
				return w, tea.Quit
			}
			return w, nil
		case w.validating():
			return w, nil
		case key.Matches(msg, w.keys.Help):
			w.help.ShowAll = !w.help.ShowAll
		case key.Matches(msg, w.keys.ToggleHex):
			w.transcript.ToggleHex()
		case key.Matches(msg, w.keys.ScrollUp):
			w.transcript.ScrollUp()
		case key.Matches(msg, w.keys.ScrollDown):
			w.transcript.ScrollDown()
		case key.Matches(msg, w.keys.Next):
			cmds = append(cmds, w.setFocus(w.focus+1))
		case key.Matches(msg, w.keys.Prev):
			cmds = append(cmds, w.setFocus(w.focus-1))
		case key.Matches(msg, w.keys.Submit):
			if w.focus != focusSubmit {
				cmds = append(cmds, w.setFocus(w.focus+1))
				break
			}
			w.statusBar.SetStatus(styles.StatusValidating, i18n.T("status.validating"), nil)
			w.note(i18n.T("status.validating"), false)
			cmds = append(cmds, w.submit())
		case w.focus == focusDevice && key.Matches(msg, w.keys.DeviceUp):
			w.devices.MoveUp()
			w.statusBar.SetDevice(w.devices.Selected())
		case w.focus == focusDevice && key.Matches(msg, w.keys.DeviceDown):
			w.devices.MoveDown()
			w.statusBar.SetDevice(w.devices.Selected())
		case w.focus == focusID:
			var cmd tea.Cmd
			w.id, cmd = w.id.Update(msg)
			cmds = append(cmds, cmd)
		case w.focus == focusPassword:
			var cmd tea.Cmd
			w.password, cmd = w.password.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return w, tea.Batch(cmds...)
}

func (w *Wizard) formView() string {
	title := styles.TitleStyle.Render(i18n.T("step.user.title"))
	desc := styles.DescriptionStyle.Render(i18n.T("step.user.description"))

	label := styles.LabelStyle
	if w.focus == focusDevice {
		label = styles.FocusedLabelStyle
	}
	deviceRow := lipgloss.JoinHorizontal(lipgloss.Top, label.Render(i18n.T("field.device")), w.devices.View())

	button := styles.ButtonStyle
	if w.focus == focusSubmit {
		button = styles.FocusedButtonStyle
	}
	submit := button.Render(i18n.T("field.submit"))
	if w.validating() {
		submit = lipgloss.JoinHorizontal(lipgloss.Left, submit, " ", w.spinner.View())
	}

	rows := []string{title, desc, "", deviceRow, w.id.View(), w.password.View(), "", submit}
	if w.baseError != "" {
		rows = append(rows, styles.ErrorStyle.Render(w.baseError))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (w *Wizard) View() string {
	if !w.ready {
		return "\n  " + w.spinner.View() + " " + i18n.T("status.validating")
	}

	var body string
	switch {
	case w.finished() && w.result != nil && w.result.Type == flow.ResultCreateEntry:
		body = styles.InfoStyle.Render(w.statusBar.Message())
	case w.finished():
		body = styles.ErrorStyle.Render(w.statusBar.Message())
	default:
		body = w.formView()
	}

	transcript := styles.ContentBorderStyle.Width(w.width).Render(w.transcript.View())
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		transcript,
		w.help.View(w.keys),
		w.statusBar.View(time.Now().Format("15:04:05")),
	)
}
