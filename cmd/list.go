/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/allbin/broute/internal/serialport"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports a radio could be attached to",
	Long: `List the serial ports of this system the way the setup wizard offers
them: the stable /dev/serial/by-id path when one exists, followed by a
readable name built from the USB metadata.

Virtual terminals and pseudo-terminals are excluded from the listing.

Examples:
  broute list
  broute list --filter usb --table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := serialport.ListDevices()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered := filterDevices(devices, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return nil
		}

		if tableFormat {
			renderTable(filtered)
		} else {
			renderSimple(filtered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterDevices keeps the devices of the given port type
func filterDevices(devices []serialport.Device, filterType string) []serialport.Device {
	if filterType == "" || filterType == "all" {
		return devices
	}

	var filtered []serialport.Device
	for _, d := range devices {
		name := strings.ToLower(d.Info.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if d.Info.IsUSB() {
				filtered = append(filtered, d)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, d)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, d)
			}
		}
	}
	return filtered
}

const (
	colPort = "port"
	colType = "type"
	colUSB  = "usb"
	colName = "name"
)

// renderTable renders the device list as a static table
func renderTable(devices []serialport.Device) {
	fmt.Printf("Found %d serial port(s):\n\n", len(devices))

	columns := []table.Column{
		table.NewColumn(colPort, "Port", 12),
		table.NewColumn(colType, "Type", 16),
		table.NewColumn(colUSB, "VID:PID", 11),
		table.NewColumn(colName, "Name", 60),
	}

	rows := make([]table.Row, 0, len(devices))
	for _, d := range devices {
		usb := ""
		if d.Info.IsUSB() {
			usb = d.Info.VendorID + ":" + d.Info.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPort: d.Info.Name,
			colType: getPortType(d.Info.Name),
			colUSB:  usb,
			colName: d.Name,
		}))
	}

	fmt.Println(staticTable(columns, rows))
}

// renderSimple prints the stable path of every device
func renderSimple(devices []serialport.Device) {
	for _, d := range devices {
		fmt.Println(d.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
