/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/broute/internal/entries"
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/setup"
	"github.com/allbin/broute/internal/skstack"
	"github.com/allbin/broute/internal/tui/components"
	"github.com/allbin/broute/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Pair a B-route radio with the smart meter",
	Long: `Run the B-route setup wizard.

Pick the serial device of the radio, enter the route B ID and password
issued by your utility, and the wizard tries to join the meter once. Working credentials are stored as an entry.

Without --id and --password an interactive form is shown. With both flags
the wizard runs once and reports the result.

Examples:
  broute setup
  broute setup --device /dev/serial/by-id/usb-ROHM_BP35C0-if00-port0
  broute setup --device /dev/ttyUSB0 --id 0123456789ABCDEF0123456789ABCDEF --password ABCDEFGHIJKL
  broute setup --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		id, _ := cmd.Flags().GetString("id")
		password, _ := cmd.Flags().GetString("password")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, dryRun)
		if err != nil {
			return err
		}
		defer store.Close()

		if id != "" || password != "" {
			if id == "" {
				id = prompt(i18n.T("field.id"))
			}
			if password == "" {
				password = prompt(i18n.T("field.password"))
			}
			return runSetupOnce(ctx, store, device, id, password)
		}
		return runSetupTUI(store, device)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().StringP("device", "d", "", "Serial device of the radio (default: first port found)")
	setupCmd.Flags().String("id", "", "Route B ID")
	setupCmd.Flags().String("password", "", "Route B password")
	setupCmd.Flags().Bool("dry-run", false, "Validate the credentials without storing an entry")
}

func prompt(label string) string {
	fmt.Print(promptStyle.Render(label + ": "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// logTracer writes radio traffic to the debug log
func logTracer(dir skstack.Direction, line string, _ time.Time) {
	logging.Debugf("%s %s", dir, line)
}

func runSetupOnce(ctx context.Context, store entries.Store, device, id, password string) error {
	m := newManager(store, logTracer)

	res, err := m.Init(ctx, setup.Domain, flow.Context{Source: flow.SourceUser}, map[string]string{setup.ConfDevice: device})
	if err != nil {
		return err
	}
	if res.Type != flow.ResultForm {
		return describeResult(res)
	}

	if device == "" {
		if f, ok := res.Schema.Field(setup.ConfDevice); ok {
			device = f.Default
		}
	}
	fmt.Printf("%s %s %s\n", infoStyle.Render("⚡"), i18n.T("status.validating"), device)

	res, err = m.Configure(ctx, res.FlowID, map[string]string{
		setup.ConfDevice:   device,
		setup.ConfID:       id,
		setup.ConfPassword: password,
	})
	if err != nil {
		return err
	}
	if res.Type == flow.ResultForm {
		_ = m.Abort(res.FlowID)
	}
	return describeResult(res)
}

func runSetupTUI(store entries.Store, device string) error {
	traces := make(chan components.TraceMsg, 256)
	tracer := func(dir skstack.Direction, line string, at time.Time) {
		select {
		case traces <- components.TraceMsg{Timestamp: at, Dir: dir, Line: line}:
		default:
			logging.Debugf("transcript full, dropped %s %s", dir, line)
		}
	}

	var data map[string]string
	if device != "" {
		data = map[string]string{setup.ConfDevice: device}
	}

	wizard := models.NewWizard(newManager(store, tracer), models.WizardOptions{
		Domain:  setup.Domain,
		Context: flow.Context{Source: flow.SourceUser},
		Data:    data,
		Traces:  traces,
		Connection: &components.ConnectionInfo{
			BaudRate:     cfg.Serial.BaudRate,
			ScanDuration: cfg.SKStack.ScanDuration,
			Language:     i18n.Current(),
		},
	})
	defer wizard.Cancel()

	p := tea.NewProgram(wizard, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	if err := wizard.Err(); err != nil {
		return err
	}
	if res := wizard.Result(); res != nil && res.Type != flow.ResultForm {
		return describeResult(res)
	}
	return nil
}
