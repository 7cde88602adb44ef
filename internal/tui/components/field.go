package components

import (
	"github.com/allbin/broute/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Field is a labelled text input of the setup form
type Field struct {
	Key       string
	label     string
	textInput textinput.Model
	err       string
	width     int
}

func NewField(key, label string, secret bool, charLimit int) *Field {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = charLimit
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return &Field{Key: key, label: label, textInput: ti}
}

func (f *Field) SetWidth(width int) {
	f.width = width
	// label(14) + border(2) + padding(2)
	usable := width - 18
	if usable < 20 {
		usable = 20
	}
	f.textInput.Width = usable
}

func (f *Field) Focus() tea.Cmd {
	return f.textInput.Focus()
}

func (f *Field) Blur() {
	f.textInput.Blur()
}

func (f *Field) Focused() bool {
	return f.textInput.Focused()
}

func (f *Field) Value() string {
	return f.textInput.Value()
}

func (f *Field) SetValue(value string) {
	f.textInput.SetValue(value)
}

// SetError shows a translated message under the field; empty clears it
func (f *Field) SetError(msg string) {
	f.err = msg
}

func (f *Field) Update(msg tea.Msg) (*Field, tea.Cmd) {
	var cmd tea.Cmd
	f.textInput, cmd = f.textInput.Update(msg)
	return f, cmd
}

func (f *Field) View() string {
	labelStyle, inputStyle := styles.LabelStyle, styles.InputStyle
	if f.Focused() {
		labelStyle, inputStyle = styles.FocusedLabelStyle, styles.FocusedInputStyle
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center,
		labelStyle.Render(f.label),
		inputStyle.Render(f.textInput.View()),
	)
	if f.err == "" {
		return row
	}
	return lipgloss.JoinVertical(lipgloss.Left, row,
		lipgloss.NewStyle().PaddingLeft(14).Render(styles.FieldErrorStyle.Render(f.err)))
}
