package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxTranscriptLines bounds the transcript kept in memory
const maxTranscriptLines = 500

// Transcript is a scrolling log of radio traffic and wizard notes
type Transcript struct {
	viewport  viewport.Model
	formatter *DataFormatter
	data      []string
}

func NewTranscript(width, height int) *Transcript {
	return &Transcript{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(false),
		data:      make([]string, 0),
	}
}

func (t *Transcript) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Transcript) append(line string) {
	t.data = append(t.data, line)
	if len(t.data) > maxTranscriptLines {
		t.data = t.data[len(t.data)-maxTranscriptLines:]
	}
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	t.viewport.GotoBottom()
}

func (t *Transcript) AddTrace(msg TraceMsg) {
	t.append(t.formatter.FormatTrace(msg))
}

func (t *Transcript) AddNote(msg NoteMsg) {
	t.append(t.formatter.FormatNote(msg))
}

func (t *Transcript) Lines() int {
	return len(t.data)
}

func (t *Transcript) Clear() {
	t.data = make([]string, 0)
	t.viewport.SetContent("")
}

func (t *Transcript) ToggleHex() {
	t.formatter.ToggleHex()
}

func (t *Transcript) ScrollUp() {
	t.viewport.HalfViewUp()
}

func (t *Transcript) ScrollDown() {
	t.viewport.HalfViewDown()
}

func (t *Transcript) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages stay with the form
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Transcript) View() string {
	return t.viewport.View()
}
