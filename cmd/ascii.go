/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
	"github.com/spf13/cobra"
)

// asciiCmd represents the ascii command
var asciiCmd = &cobra.Command{
	Use:   "ascii <port>",
	Short: "Switch a radio to ASCII payload mode",
	Long: `Query the payload mode of a SKSTACK-IP radio with ROPT and switch it to
ASCII with WOPT 01 when it is still in binary mode. The setting is stored
in the radio's flash, so this is only written when needed.

Examples:
  broute ascii /dev/ttyUSB0
  broute ascii /dev/serial/by-id/usb-ROHM_BP35C0-if00-port0 --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		verbose, _ := cmd.Flags().GetBool("verbose")

		fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)
		port, err := serialport.Open(portPath,
			serialport.WithBaudRate(cfg.Serial.BaudRate),
			serialport.WithReadTimeout(cfg.Serial.ReadTimeout),
		)
		if err != nil {
			return err
		}
		defer port.Close()

		var tracer skstack.Tracer
		if verbose {
			tracer = printTracer(false)
		}

		changed, err := skstack.ActivateASCIIMode(cmd.Context(), port, tracer)
		if err != nil {
			return err
		}
		if changed {
			fmt.Printf("%s %s: %s\n", successStyle.Render("✓"), portPath, i18n.T("status.ascii_mode"))
		} else {
			fmt.Printf("%s ASCII mode already active on %s\n", successStyle.Render("✓"), portPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(asciiCmd)

	asciiCmd.Flags().BoolP("verbose", "v", false, "Print the radio traffic")
}
