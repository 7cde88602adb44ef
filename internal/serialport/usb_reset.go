package serialport

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// USB devices typically take 1-2 seconds to re-enumerate after a reset
var resetSettleTime = 2 * time.Second

// runUSBReset executes the usbreset utility, swapped out by tests
var runUSBReset = func(ctx context.Context, usbPath string) ([]byte, error) {
	return exec.CommandContext(ctx, "usbreset", usbPath).CombinedOutput()
}

// formatUSBPath builds the BBB/DDD argument usbreset expects
func formatUSBPath(bus, device string) string {
	pad := func(s string) string {
		if len(s) >= 3 {
			return s
		}
		return strings.Repeat("0", 3-len(s)) + s
	}
	return pad(bus) + "/" + pad(device)
}

// ResetUSBDevice performs a USB-level reset of the device behind portPath.
// A radio wedged mid-handshake usually only recovers this way or by replugging.
//
// Requires the usbreset utility (usbutils) and root permissions.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	if output, err := runUSBReset(ctx, formatUSBPath(info.BusNumber, info.DeviceNumber)); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	select {
	case <-time.After(resetSettleTime):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ResetUSBDeviceBySerial resets a USB device by its serial number
// Useful when device paths change after reboot or when multiple devices are connected
func ResetUSBDeviceBySerial(ctx context.Context, serialNumber string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(ctx, portPath)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
