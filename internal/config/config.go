// Package config loads broute settings from defaults, broute.yaml, BROUTE_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName    = "broute"
	envPrefix  = "broute"
	configName = "broute"
)

// Config is the full application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Language  string          `mapstructure:"language" yaml:"language"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Serial    SerialConfig    `mapstructure:"serial" yaml:"serial"`
	SKStack   SKStackConfig   `mapstructure:"skstack" yaml:"skstack"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type SerialConfig struct {
	BaudRate    int           `mapstructure:"baud_rate" yaml:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

type SKStackConfig struct {
	ScanDuration   int           `mapstructure:"scan_duration" yaml:"scan_duration"`
	ScanRetries    int           `mapstructure:"scan_retries" yaml:"scan_retries"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	JoinTimeout    time.Duration `mapstructure:"join_timeout" yaml:"join_timeout"`
}

type DiscoveryConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Matchers []string      `mapstructure:"matchers" yaml:"matchers"`
}

// flagKeys binds command line flags to config keys
var flagKeys = map[string]string{
	"log-level": "log.level",
	"language":  "language",
	"database":  "database.dsn",
	"baud":      "serial.baud_rate",
}

// Defaults returns the built-in settings keyed by config path
func Defaults() map[string]any {
	return map[string]any{
		"log.level":               "info",
		"language":                "en",
		"database.dsn":            DefaultDatabasePath(),
		"serial.baud_rate":        115200,
		"serial.read_timeout":     500 * time.Millisecond,
		"skstack.scan_duration":   6,
		"skstack.scan_retries":    3,
		"skstack.command_timeout": 5 * time.Second,
		"skstack.join_timeout":    60 * time.Second,
		"discovery.interval":      2 * time.Second,
		"discovery.matchers":      []string{},
	}
}

// UserConfigPath is where the user's broute.yaml lives
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName, configName+".yaml"), nil
}

// DefaultDatabasePath places the entry database next to the user config
func DefaultDatabasePath() string {
	path, err := UserConfigPath()
	if err != nil {
		return configName + ".db"
	}
	return filepath.Join(filepath.Dir(path), "entries.db")
}

// LoadConfig resolves T from defaults, the config file, environment and the
// flags of cmd. explicitPath, when set, replaces the config file search. The
// returned path is the config file that was read, empty when none was found.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath string) (T, string, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if userPath, err := UserConfigPath(); err == nil {
			v.AddConfigPath(filepath.Dir(userPath))
		}
		v.AddConfigPath(filepath.Join("/etc", appName))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, "", fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, "", err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", fmt.Errorf("decode config: %w", err)
	}
	return c, v.ConfigFileUsed(), nil
}

// Load resolves the application Config
func Load(cmd *cobra.Command, explicitPath string) (Config, string, error) {
	c, used, err := LoadConfig[Config](cmd, Defaults(), explicitPath)
	if err != nil {
		return c, used, err
	}
	return c, used, c.Validate()
}

// Validate rejects settings the radio code cannot use
func (c Config) Validate() error {
	if c.SKStack.ScanDuration < 1 || c.SKStack.ScanDuration > 14 {
		return fmt.Errorf("skstack.scan_duration must be 1-14, got %d", c.SKStack.ScanDuration)
	}
	if c.SKStack.ScanRetries < 1 {
		return fmt.Errorf("skstack.scan_retries must be at least 1, got %d", c.SKStack.ScanRetries)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}
	return nil
}

// WriteConfigFile writes c as YAML to path with owner-only permissions
func WriteConfigFile[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}
