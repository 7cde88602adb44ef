package styles

import (
	"github.com/allbin/broute/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(colors.Subtext0).
				Padding(0, 1)

	// Form styles
	LabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext1).
			Width(14)

	FocusedLabelStyle = LabelStyle.
				Foreground(colors.Mauve).
				Bold(true)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	FocusedInputStyle = InputStyle.
				BorderForeground(colors.Mauve)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Background(colors.Surface1).
			Padding(0, 2)

	FocusedButtonStyle = ButtonStyle.
				Foreground(colors.Base).
				Background(colors.Mauve).
				Bold(true)

	FieldErrorStyle = lipgloss.NewStyle().
			Foreground(colors.Red)

	// Transcript area
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Green)
)

// StatusType is the wizard state shown in the status bar
type StatusType int

const (
	StatusForm StatusType = iota
	StatusValidating
	StatusDone
	StatusFailed
)

func (s StatusType) String() string {
	switch s {
	case StatusValidating:
		return "VALIDATING"
	case StatusDone:
		return "DONE"
	case StatusFailed:
		return "ABORTED"
	default:
		return "FORM"
	}
}

func GetStatusStyle(status StatusType) lipgloss.Style {
	base := lipgloss.NewStyle().Foreground(colors.Base).Bold(true).Padding(0, 1)
	switch status {
	case StatusValidating:
		return base.Background(colors.Yellow)
	case StatusDone:
		return base.Background(colors.Green)
	case StatusFailed:
		return base.Background(colors.Red)
	default:
		return base.Background(colors.Blue)
	}
}
