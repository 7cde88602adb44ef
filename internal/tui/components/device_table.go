package components

import (
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// maxDeviceRows is the tallest the picker grows before scrolling
const maxDeviceRows = 5

// DeviceTable picks one serial device from the form options
type DeviceTable struct {
	table   table.Model
	options []flow.Option
	custom  string // preselected device not among the options
}

func NewDeviceTable(width int) *DeviceTable {
	t := table.New(
		table.WithFocused(false),
		table.WithHeight(1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	dt := &DeviceTable{table: t}
	dt.SetWidth(width)
	return dt
}

func (dt *DeviceTable) SetWidth(width int) {
	if width < 60 {
		width = 60
	}
	pathWidth := width * 4 / 10
	dt.table.SetColumns([]table.Column{
		{Title: "Path", Width: pathWidth},
		{Title: "Device", Width: width - pathWidth - 4},
	})
	dt.table.SetWidth(width)
	dt.table.UpdateViewport()
}

// SetOptions replaces the rows and selects selected when present
func (dt *DeviceTable) SetOptions(options []flow.Option, selected string) {
	dt.options = options
	dt.custom = ""

	rows := make([]table.Row, 0, len(options)+1)
	cursor := -1
	for i, o := range options {
		rows = append(rows, table.Row{o.Value, o.Label})
		if o.Value == selected {
			cursor = i
		}
	}
	if cursor < 0 && selected != "" {
		dt.custom = selected
		rows = append([]table.Row{{selected, "discovered"}}, rows...)
		cursor = 0
	}
	if cursor < 0 {
		cursor = 0
	}

	height := len(rows)
	if height > maxDeviceRows {
		height = maxDeviceRows
	}
	if height < 1 {
		height = 1
	}
	dt.table.SetRows(rows)
	dt.table.SetHeight(height + 1)
	dt.table.SetCursor(cursor)
}

// Selected returns the device path under the cursor
func (dt *DeviceTable) Selected() string {
	row := dt.table.SelectedRow()
	if row == nil {
		return ""
	}
	return row[0]
}

func (dt *DeviceTable) Len() int {
	return len(dt.table.Rows())
}

func (dt *DeviceTable) Focus()        { dt.table.Focus() }
func (dt *DeviceTable) Blur()         { dt.table.Blur() }
func (dt *DeviceTable) Focused() bool { return dt.table.Focused() }

func (dt *DeviceTable) MoveUp()   { dt.table.MoveUp(1) }
func (dt *DeviceTable) MoveDown() { dt.table.MoveDown(1) }

func (dt *DeviceTable) View() string {
	return dt.table.View()
}
