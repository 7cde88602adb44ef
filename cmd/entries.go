/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/broute/internal/entries"
	"github.com/allbin/broute/internal/setup"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// entriesCmd represents the entries command
var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage stored B-route entries",
	Long: `List or remove the configuration entries created by the setup wizard.

Examples:
  broute entries list
  broute entries list --show-password
  broute entries remove 6f1c2d0e-5c1b-4c43-9d4e-2c8f3f7f4b1a`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		showPassword, _ := cmd.Flags().GetBool("show-password")

		store, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer store.Close()

		list, err := store.List(cmd.Context(), setup.Domain)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No entries configured")
			return nil
		}

		fmt.Println(renderEntries(list, showPassword))
		return nil
	},
}

var entriesRemoveCmd = &cobra.Command{
	Use:   "remove <entry-id>",
	Short: "Remove a stored entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Remove(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, entries.ErrNotFound) {
				return fmt.Errorf("no entry with ID %s", args[0])
			}
			return err
		}
		fmt.Printf("%s Removed entry %s\n", successStyle.Render("✓"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(entriesCmd)
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesRemoveCmd)

	entriesListCmd.Flags().Bool("show-password", false, "Show route B passwords in clear text")
}

const (
	colEntryID  = "entry_id"
	colDevice   = "device"
	colRouteID  = "route_id"
	colPassword = "password"
	colSource   = "source"
	colCreated  = "created"
)

// renderEntries lays out entries as a static table
func renderEntries(list []entries.Entry, showPassword bool) string {
	columns := []table.Column{
		table.NewColumn(colEntryID, "Entry ID", 36),
		table.NewColumn(colDevice, "Device", 40),
		table.NewColumn(colRouteID, "Route B ID", 32),
		table.NewColumn(colPassword, "Password", 12),
		table.NewColumn(colSource, "Source", 6),
		table.NewColumn(colCreated, "Created", 19),
	}

	rows := make([]table.Row, 0, len(list))
	for _, e := range list {
		password := e.Data[setup.ConfPassword]
		if !showPassword {
			password = strings.Repeat("*", len(password))
		}
		rows = append(rows, table.NewRow(table.RowData{
			colEntryID:  e.EntryID,
			colDevice:   e.Data[setup.ConfDevice],
			colRouteID:  e.Data[setup.ConfID],
			colPassword: password,
			colSource:   e.Source,
			colCreated:  e.CreatedAt.Local().Format(time.DateTime),
		}))
	}
	return staticTable(columns, rows)
}
