/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/allbin/broute/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

// staticTable renders rows once for plain terminal output
func staticTable(columns []table.Column, rows []table.Row) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Mauve)

	base := lipgloss.NewStyle().
		Foreground(colors.Text).
		BorderForeground(colors.Surface2).
		Align(lipgloss.Left)

	return table.New(columns).
		WithRows(rows).
		HeaderStyle(header).
		WithBaseStyle(base).
		BorderRounded().
		Focused(false).
		View()
}
