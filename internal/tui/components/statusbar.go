package components

import (
	"fmt"

	"github.com/allbin/broute/internal/tui/colors"
	"github.com/allbin/broute/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo describes the serial settings used for validation
type ConnectionInfo struct {
	BaudRate     int
	ScanDuration int
	Language     string
}

type StatusBar struct {
	title          string
	device         string
	status         styles.StatusType
	message        string
	err            error
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(title string) *StatusBar {
	return &StatusBar{
		title:   title,
		message: "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetDevice(device string) {
	sb.device = device
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

// SetStatus changes the state and message. err marks the message as a failure.
func (sb *StatusBar) SetStatus(status styles.StatusType, message string, err error) {
	sb.status = status
	sb.message = message
	sb.err = err
}

func (sb *StatusBar) Status() styles.StatusType {
	return sb.status
}

func (sb *StatusBar) Message() string {
	return sb.message
}

// View renders the bar: state, device, indicator, message, settings and time
func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	mode := styles.GetStatusStyle(sb.status).Render(sb.status.String())

	deviceStyle := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1)
	device := deviceStyle.Render(sb.device)

	var indicator string
	switch {
	case sb.err != nil:
		indicator = lipgloss.NewStyle().Foreground(colors.Red).Render("✗")
	case sb.status == styles.StatusDone:
		indicator = lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	case sb.status == styles.StatusValidating:
		indicator = lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	default:
		indicator = lipgloss.NewStyle().Foreground(colors.Overlay0).Render("○")
	}

	messageStyle := lipgloss.NewStyle().Foreground(colors.Text).Padding(0, 1)
	if sb.err != nil {
		messageStyle = messageStyle.Foreground(colors.Red)
	}
	message := messageStyle.Render(sb.message)

	info := "⚡ " + sb.title
	if sb.connectionInfo != nil {
		info = fmt.Sprintf("⚡ %d baud 8N1 scan %d %s",
			sb.connectionInfo.BaudRate,
			sb.connectionInfo.ScanDuration,
			sb.connectionInfo.Language)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(info)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, device, indicator, message, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
