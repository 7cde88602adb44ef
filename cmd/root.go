/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/allbin/broute/internal/config"
	"github.com/allbin/broute/internal/entries"
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/i18n"
	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/setup"
	"github.com/allbin/broute/internal/skstack"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "broute",
	Short: "Set up smart meter B-route USB radios",
	Long: `broute pairs a smart meter B-route USB radio (BP35A1/BP35C0/RL7023 and
other SKSTACK-IP devices) with this host.

It lists serial ports, switches the radio to ASCII mode, authenticates
against the meter with your route B ID and password, and stores the
working credentials as a configuration entry.

Examples:
  broute list --table
  broute setup
  broute setup --device /dev/ttyUSB0 --id <id> --password <password>
  broute discover
  broute entries list`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, used, err := config.Load(cmd, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			return err
		}
		if err := i18n.Init(cfg.Language); err != nil {
			return err
		}

		if used == "" && cfgFile == "" {
			writeDefaultConfig()
		} else {
			logging.Debugf("using config file %s", used)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/broute/broute.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("language", "en", "Language of the wizard text: en, ja")
	rootCmd.PersistentFlags().String("database", "", "Entry database path (default next to the config file)")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate of the radio")
}

// writeDefaultConfig stores the resolved settings on first run
func writeDefaultConfig() {
	path, err := config.UserConfigPath()
	if err != nil {
		logging.Warnf("%v", err)
		return
	}
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := config.WriteConfigFile(&cfg, path); err != nil {
		logging.Warnf("could not write default config: %v", err)
		return
	}
	logging.Infof("wrote default config to %s", path)
}

// openStore opens the configured entry database, or a throwaway store for dry runs
func openStore(ctx context.Context, dryRun bool) (entries.Store, error) {
	if dryRun {
		return entries.NewMemoryStore(), nil
	}
	store, err := entries.OpenSQLite(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open entry database: %w", err)
	}
	return store, nil
}

// stackOptions maps the skstack settings to client options
func stackOptions() []skstack.Option {
	return []skstack.Option{
		skstack.WithScanDuration(cfg.SKStack.ScanDuration),
		skstack.WithScanRetries(cfg.SKStack.ScanRetries),
		skstack.WithCommandTimeout(cfg.SKStack.CommandTimeout),
		skstack.WithJoinTimeout(cfg.SKStack.JoinTimeout),
	}
}

// radioConfig builds the validator settings from the loaded config
func radioConfig(tracer skstack.Tracer) setup.RadioConfig {
	rc := setup.DefaultRadioConfig()
	rc.BaudRate = cfg.Serial.BaudRate
	rc.ReadTimeout = cfg.Serial.ReadTimeout
	rc.Stack = stackOptions()
	rc.Tracer = tracer
	return rc
}

// newManager registers the B-route flow against store
func newManager(store entries.Store, tracer skstack.Tracer) *flow.Manager {
	m := flow.NewManager(store)
	m.Register(setup.Domain, setup.Factory(
		setup.WithValidator(setup.NewRadioValidator(radioConfig(tracer))),
	))
	return m
}

// describeResult prints a flow result for the non-interactive commands
func describeResult(res *flow.Result) error {
	switch res.Type {
	case flow.ResultCreateEntry:
		id := ""
		if res.Entry != nil {
			id = res.Entry.EntryID
		}
		fmt.Println(successStyle.Render("✓ ") + i18n.Tf("status.created", map[string]any{"Title": res.Title, "EntryID": id}))
		return nil
	case flow.ResultAbort:
		return errors.New(i18n.T("abort." + res.Reason))
	case flow.ResultForm:
		for field, code := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", errorStyle.Render("✗"), field, i18n.T("error."+code))
		}
		if len(res.Errors) > 0 {
			return errors.New("credentials were not accepted")
		}
		return nil
	}
	return fmt.Errorf("unexpected flow result %s", res.Type)
}
