/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
	"github.com/allbin/broute/internal/tui/components"
	"github.com/spf13/cobra"
)

// commandCmd represents the command command
var commandCmd = &cobra.Command{
	Use:   "command <command> <port>",
	Short: "Send a raw SKSTACK-IP command to a radio",
	Long: `Send one SKSTACK-IP command and print the lines the radio answers with,
up to the closing OK or FAIL.

The command can also be piped on stdin, or typed at a prompt when only the
port is given.

Examples:
  broute command SKVER /dev/ttyUSB0
  broute command "SKINFO" /dev/ttyUSB0
  echo "SKSREG S2" | broute command /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var line, portPath string

		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				line = prompt("Command")
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				line = strings.TrimRight(string(data), "\r\n")
			}
		} else {
			line = args[0]
			portPath = args[1]
		}
		if line == "" {
			return fmt.Errorf("no command given")
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		hexMode, _ := cmd.Flags().GetBool("hex")
		return sendCommand(cmd.Context(), portPath, line, timeout, hexMode)
	},
}

func init() {
	rootCmd.AddCommand(commandCmd)

	commandCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Time to wait for OK or FAIL")
	commandCmd.Flags().BoolP("hex", "x", false, "Show the radio lines as hex bytes")
}

// printTracer writes radio lines to stdout the way the wizard transcript shows them
func printTracer(showHex bool) skstack.Tracer {
	formatter := components.NewDataFormatter(showHex)
	return func(dir skstack.Direction, line string, at time.Time) {
		fmt.Println(formatter.FormatTrace(components.TraceMsg{Timestamp: at, Dir: dir, Line: line}))
	}
}

func sendCommand(ctx context.Context, portPath, line string, timeout time.Duration, showHex bool) error {
	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	port, err := serialport.Open(portPath,
		serialport.WithBaudRate(cfg.Serial.BaudRate),
		serialport.WithReadTimeout(cfg.Serial.ReadTimeout),
	)
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer port.Close()

	client, err := skstack.New(port,
		skstack.WithCommandTimeout(timeout),
		skstack.WithTracer(printTracer(showHex)),
	)
	if err != nil {
		return err
	}

	body, err := client.Command(ctx, line)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}
	fmt.Printf("%s OK (%d line(s))\n", successStyle.Render("✓"), len(body))
	return nil
}
