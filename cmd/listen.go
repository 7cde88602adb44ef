/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Print the lines a radio sends",
	Long: `Open the port of a radio and print every line it sends with a
timestamp, until Ctrl+C. Useful to watch EVENT and ERXUDP lines while
another tool drives the radio, or after a manual SKJOIN.

Example usage:
  broute listen /dev/ttyUSB0
  broute listen /dev/ttyUSB0 --events`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		eventsOnly, _ := cmd.Flags().GetBool("events")
		hexMode, _ := cmd.Flags().GetBool("hex")

		port, err := serialport.Open(portPath,
			serialport.WithBaudRate(cfg.Serial.BaudRate),
			serialport.WithReadTimeout(cfg.Serial.ReadTimeout),
		)
		if err != nil {
			return err
		}
		defer port.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Listening on %s (Ctrl+C to stop)\n", infoStyle.Render("⚡"), portPath)

		if !eventsOnly {
			return skstack.Listen(ctx, port, printTracer(hexMode), nil)
		}
		return skstack.Listen(ctx, port, nil, func(ev skstack.Event) {
			fmt.Printf("%s EVENT %s from %s %s\n", infoStyle.Render("•"), ev.Code, ev.Sender, ev.Param)
		})
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().BoolP("events", "e", false, "Only print EVENT lines")
	listenCmd.Flags().BoolP("hex", "x", false, "Show the radio lines as hex bytes")
}
