package serialport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		expected string
		setup    func(string) error
	}{
		{
			name:     "normal file",
			expected: "1234",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("1234\n"), 0644)
			},
		},
		{
			name:     "file with spaces",
			expected: "test value",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("  test value  \n"), 0644)
			},
		},
		{
			name:     "nonexistent file",
			expected: "",
			setup:    func(path string) error { return nil },
		},
		{
			name:     "empty file",
			expected: "",
			setup: func(path string) error {
				return os.WriteFile(path, []byte(""), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, tt.name)
			if err := tt.setup(testFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			if result := readSysfsFile(testFile); result != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// buildSysfs lays out a fake sysfs tree for a single tty and returns its root.
//
//	root/class/tty/<name>/device -> devices/usb5/5-2.3.1/5-2.3.1:1.0[/<name>]
func buildSysfs(t *testing.T, name string, ttyUnderInterface bool) string {
	t.Helper()
	root := t.TempDir()

	devicePath := filepath.Join(root, "devices", "usb5", "5-2.3.1")
	interfacePath := filepath.Join(devicePath, "5-2.3.1:1.0")
	target := interfacePath
	if ttyUnderInterface {
		target = filepath.Join(interfacePath, name)
	}
	classTtyPath := filepath.Join(root, "class", "tty", name)

	for _, dir := range []string{target, classTtyPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	deviceFiles := map[string]string{
		"idVendor":     "0403",
		"idProduct":    "6015",
		"serial":       "DN05ABCD",
		"manufacturer": "FTDI",
		"product":      "FT230X Basic UART",
		"busnum":       "5",
		"devnum":       "7",
	}
	for filename, content := range deviceFiles {
		if err := os.WriteFile(filepath.Join(devicePath, filename), []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", filename, err)
		}
	}
	if err := os.WriteFile(filepath.Join(interfacePath, "bInterfaceNumber"), []byte("00\n"), 0644); err != nil {
		t.Fatalf("Failed to write interface number: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(classTtyPath, "device")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return root
}

func TestEnrichUSBInfo(t *testing.T) {
	for _, tc := range []struct {
		name              string
		tty               string
		ttyUnderInterface bool
	}{
		{"ttyUSB links below interface", "ttyUSB0", true},
		{"ttyACM links to interface", "ttyACM0", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			prev := sysfsRoot
			sysfsRoot = buildSysfs(t, tc.tty, tc.ttyUnderInterface)
			defer func() { sysfsRoot = prev }()

			info := &PortInfo{Name: tc.tty, Path: "/dev/" + tc.tty}
			enrichUSBInfo(info)

			tests := []struct {
				name     string
				got      string
				expected string
			}{
				{"VendorID", info.VendorID, "0403"},
				{"ProductID", info.ProductID, "6015"},
				{"SerialNumber", info.SerialNumber, "DN05ABCD"},
				{"InterfaceNumber", info.InterfaceNumber, "00"},
				{"BusNumber", info.BusNumber, "5"},
				{"DeviceNumber", info.DeviceNumber, "7"},
				{"Manufacturer", info.Manufacturer, "FTDI"},
				{"Product", info.Product, "FT230X Basic UART"},
			}
			for _, tt := range tests {
				if tt.got != tt.expected {
					t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
				}
			}
			if !info.IsUSB() {
				t.Error("IsUSB() = false after enrichment")
			}
		})
	}
}

func TestEnrichUSBInfoGracefulFailure(t *testing.T) {
	prev := sysfsRoot
	sysfsRoot = t.TempDir()
	defer func() { sysfsRoot = prev }()

	info := &PortInfo{Name: "ttyUSB999", Path: "/dev/ttyUSB999"}
	enrichUSBInfo(info)

	if info.VendorID != "" || info.ProductID != "" || info.SerialNumber != "" {
		t.Errorf("Expected empty USB fields, got %+v", info)
	}
}

func TestFormatUSBPath(t *testing.T) {
	tests := []struct {
		bus      string
		device   string
		expected string
	}{
		{"5", "7", "005/007"},
		{"1", "2", "001/002"},
		{"123", "456", "123/456"},
		{"1", "10", "001/010"},
	}

	for _, tt := range tests {
		if formatted := formatUSBPath(tt.bus, tt.device); formatted != tt.expected {
			t.Errorf("formatUSBPath(%q, %q) = %q, expected %q", tt.bus, tt.device, formatted, tt.expected)
		}
	}
}

func TestResetUSBDeviceRequiresUSBInfo(t *testing.T) {
	err := ResetUSBDevice(context.Background(), "/dev/null")
	if err != ErrUSBInfoNotAvailable {
		t.Errorf("Expected ErrUSBInfoNotAvailable, got %v", err)
	}
}

func TestResetUSBDeviceBySerialNotFound(t *testing.T) {
	err := ResetUSBDeviceBySerial(context.Background(), "NONEXISTENT_SERIAL")
	if err == nil {
		t.Fatal("Expected error for nonexistent serial number")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}
