package components

import (
	"fmt"
	"time"

	"github.com/allbin/broute/internal/skstack"
	"github.com/allbin/broute/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// TraceMsg is one line exchanged with the radio
type TraceMsg struct {
	Timestamp time.Time
	Dir       skstack.Direction
	Line      string
}

// NoteMsg is a wizard message shown inline with the radio traffic
type NoteMsg struct {
	Timestamp time.Time
	Text      string
	IsError   bool
}

// DisplayMode selects how trace lines are rendered
type DisplayMode struct {
	ShowHex bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex bool) *DataFormatter {
	return &DataFormatter{mode: DisplayMode{ShowHex: showHex}}
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func timestampStyled(t time.Time) string {
	return lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", t.Format("15:04:05.000")))
}

// FormatTrace renders a radio line with a direction arrow
func (df *DataFormatter) FormatTrace(msg TraceMsg) string {
	var indicator string
	if msg.Dir == skstack.TX {
		indicator = lipgloss.NewStyle().
			Foreground(colors.TX).
			Bold(true).
			Render("↗ TX")
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.RX).
			Bold(true).
			Render("↙ RX")
	}

	text := sanitize(msg.Line)
	if df.mode.ShowHex {
		text = fmt.Sprintf("%s  HEX: % X", text, []byte(msg.Line))
	}
	return fmt.Sprintf("%s %s: %s", timestampStyled(msg.Timestamp), indicator, text)
}

// FormatNote renders a wizard message
func (df *DataFormatter) FormatNote(msg NoteMsg) string {
	color := colors.Green
	if msg.IsError {
		color = colors.Red
	}
	indicator := lipgloss.NewStyle().Foreground(color).Bold(true).Render("•")
	return fmt.Sprintf("%s %s %s", timestampStyled(msg.Timestamp), indicator, sanitize(msg.Text))
}

// sanitize drops control characters so radio output cannot drive the terminal
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r < 32 || r == 127 {
			out = append(out, '.')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
