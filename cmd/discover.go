/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/broute/internal/discovery"
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/setup"
	"github.com/spf13/cobra"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Watch for B-route radios being plugged in",
	Long: `Watch the USB bus and start a setup flow for every serial device that
appears. Restrict the devices with --match (or discovery.matchers in the
config file), e.g. --match 0403:6015 for FTDI based radios.

With --id and --password every discovered radio is validated right away
and stored as an entry on success. Without them the command reports the
discovered devices and how to finish their setup.

Press Ctrl+C to stop watching.

Examples:
  broute discover
  broute discover --match 0403:6015 --interval 5s
  broute discover --id <id> --password <password>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		password, _ := cmd.Flags().GetString("password")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		patterns := cfg.Discovery.Matchers
		if cmd.Flags().Changed("match") {
			patterns, _ = cmd.Flags().GetStringSlice("match")
		}
		matchers := make([]discovery.Matcher, 0, len(patterns))
		for _, p := range patterns {
			m, err := discovery.ParseMatcher(p)
			if err != nil {
				return err
			}
			matchers = append(matchers, m)
		}

		interval := cfg.Discovery.Interval
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, dryRun)
		if err != nil {
			return err
		}
		defer store.Close()

		m := newManager(store, logTracer)
		watcher := discovery.NewWatcher(
			discovery.WithInterval(interval),
			discovery.WithMatchers(matchers...),
		)

		fmt.Printf("%s Watching for USB serial devices every %s (Ctrl+C to stop)\n", infoStyle.Render("🔍"), interval)
		err = watcher.Run(ctx, func(ctx context.Context, info discovery.UsbServiceInfo) {
			if err := handleDiscovered(ctx, m, info, id, password); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorStyle.Render("✗"), info.Device, err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringSliceP("match", "m", nil, "Only report devices matching vid[:pid] (repeatable)")
	discoverCmd.Flags().DurationP("interval", "i", 0, "Poll interval (default from config, 2s)")
	discoverCmd.Flags().String("id", "", "Route B ID used to validate discovered radios")
	discoverCmd.Flags().String("password", "", "Route B password used to validate discovered radios")
	discoverCmd.Flags().Bool("dry-run", false, "Validate without storing entries")
}

// handleDiscovered starts a usb flow for info and, given credentials, finishes it
func handleDiscovered(ctx context.Context, m *flow.Manager, info discovery.UsbServiceInfo, id, password string) error {
	fmt.Printf("%s %s\n", infoStyle.Render("🔌"), i18n.Tf("status.discovered", map[string]any{"Device": info.Device}))

	res, err := m.Init(ctx, setup.Domain, flow.Context{Source: flow.SourceUSB}, info.Data())
	if err != nil {
		return err
	}
	if res.Type != flow.ResultForm {
		return describeResult(res)
	}

	if id == "" || password == "" {
		fmt.Printf("  run: broute setup --device %s\n", info.Device)
		return m.Abort(res.FlowID)
	}

	logging.Infof("discovery: validating %s", info.Device)
	res, err = m.Configure(ctx, res.FlowID, map[string]string{
		setup.ConfDevice:   info.Device,
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
