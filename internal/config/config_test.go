package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	tmp := isolate(t)

	c, used, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if used != "" {
		t.Errorf("used = %q, want no config file", used)
	}
	if c.Log.Level != "info" || c.Language != "en" {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.Serial.BaudRate != 115200 || c.Serial.ReadTimeout != 500*time.Millisecond {
		t.Errorf("Serial = %+v", c.Serial)
	}
	if c.SKStack.ScanDuration != 6 || c.SKStack.ScanRetries != 3 || c.SKStack.JoinTimeout != time.Minute {
		t.Errorf("SKStack = %+v", c.SKStack)
	}
	if want := filepath.Join(tmp, "broute", "entries.db"); c.Database.DSN != want {
		t.Errorf("Database.DSN = %q, want %q", c.Database.DSN, want)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.yaml")
	content := "log:\n  level: debug\nskstack:\n  scan_duration: 8\n  join_timeout: 90s\ndiscovery:\n  matchers:\n    - \"0403:6015\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, used, err := Load(&cobra.Command{}, file)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if used != file {
		t.Errorf("used = %q, want %q", used, file)
	}
	if c.Log.Level != "debug" || c.SKStack.ScanDuration != 8 || c.SKStack.JoinTimeout != 90*time.Second {
		t.Errorf("file values not applied: %+v", c)
	}
	if len(c.Discovery.Matchers) != 1 || c.Discovery.Matchers[0] != "0403:6015" {
		t.Errorf("Discovery.Matchers = %v", c.Discovery.Matchers)
	}
	if c.SKStack.ScanRetries != 3 {
		t.Errorf("unset key lost its default: %+v", c.SKStack)
	}
}

func TestLoadSearchesUserConfigDir(t *testing.T) {
	tmp := isolate(t)
	path, err := UserConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("language: ja\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, used, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Language != "ja" {
		t.Errorf("Language = %q, want ja", c.Language)
	}
	if used != filepath.Join(tmp, "broute", "broute.yaml") {
		t.Errorf("used = %q", used)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "broute.yaml")
	if err := os.WriteFile(file, []byte("log:\n  level: warn\nlanguage: ja\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BROUTE_LOG_LEVEL", "error")
	t.Setenv("BROUTE_SKSTACK_SCAN_RETRIES", "5")

	cmd := &cobra.Command{}
	cmd.Flags().String("language", "en", "")
	if err := cmd.Flags().Set("language", "en"); err != nil {
		t.Fatal(err)
	}

	c, _, err := Load(cmd, file)
	if err != nil {
		t.Fatal(err)
	}
	if c.Log.Level != "error" {
		t.Errorf("Log.Level = %q, env should beat file", c.Log.Level)
	}
	if c.SKStack.ScanRetries != 5 {
		t.Errorf("ScanRetries = %d, want 5 from env", c.SKStack.ScanRetries)
	}
	if c.Language != "en" {
		t.Errorf("Language = %q, flag should beat file", c.Language)
	}
}

func TestLoadInvalid(t *testing.T) {
	tmp := isolate(t)

	broken := filepath.Join(tmp, "broken.yaml")
	if err := os.WriteFile(broken, []byte("log: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(&cobra.Command{}, broken); err == nil {
		t.Error("expected parse error")
	}

	outOfRange := filepath.Join(tmp, "range.yaml")
	if err := os.WriteFile(outOfRange, []byte("skstack:\n  scan_duration: 20\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(&cobra.Command{}, outOfRange); err == nil {
		t.Error("expected validation error for scan_duration 20")
	}
}

func TestWriteConfigFile(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "nested", "broute.yaml")

	c, _, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatal(err)
	}
	c.Language = "ja"
	if err := WriteConfigFile(&c, path); err != nil {
		t.Fatalf("WriteConfigFile() error: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", st.Mode().Perm())
	}

	reloaded, _, err := Load(&cobra.Command{}, path)
	if err != nil {
		t.Fatalf("reload written config: %v", err)
	}
	if reloaded.Language != "ja" || reloaded.SKStack.JoinTimeout != c.SKStack.JoinTimeout {
		t.Errorf("reloaded = %+v, want %+v", reloaded, c)
	}
}
