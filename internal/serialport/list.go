package serialport

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Filesystem roots, swapped out by tests
var (
	devDir      = "/dev"
	sysfsRoot   = "/sys"
	serialByDir = "/dev/serial/by-id"
)

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// Exclude patterns for virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),
	regexp.MustCompile(`^console$`),
	regexp.MustCompile(`^ptmx$`),
	regexp.MustCompile(`^pty.*$`),
	regexp.MustCompile(`^pts/.*$`),
}

func matchesSerialPattern(name string) bool {
	for _, pattern := range excludePatterns {
		if pattern.MatchString(name) {
			return false
		}
	}
	for _, pattern := range serialPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// ListPorts returns a list of available serial ports on the system
// Filters for communication-capable devices and excludes virtual terminals
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !matchesSerialPattern(name) {
			continue
		}

		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial port and, for USB adapters, the device behind it
type PortInfo struct {
	Name            string
	Path            string
	Description     string
	VendorID        string
	ProductID       string
	SerialNumber    string
	Manufacturer    string
	Product         string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
}

// IsUSB reports whether USB metadata was found for the port
func (p *PortInfo) IsUSB() bool {
	return p.VendorID != "" && p.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	// Follow by-id links so the sysfs lookup uses the kernel name
	resolved := portPath
	if target, err := filepath.EvalSymlinks(portPath); err == nil {
		resolved = target
	}
	name := filepath.Base(resolved)

	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}

	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "" if unreadable
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// enrichUSBInfo fills USB metadata from /sys/class/tty/<name>/device.
// ttyUSB links to a child of the interface directory, ttyACM to the interface itself.
func enrichUSBInfo(info *PortInfo) {
	devicePath := filepath.Join(sysfsRoot, "class", "tty", info.Name, "device")
	resolvedPath, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return
	}

	interfacePath := resolvedPath
	if readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber")) == "" {
		interfacePath = filepath.Dir(resolvedPath)
	}
	info.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))

	usbDevicePath := filepath.Dir(interfacePath)
	info.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
}

// SerialByID returns the /dev/serial/by-id link pointing at devPath, or devPath
// itself when no such link exists. The link survives re-enumeration.
func SerialByID(devPath string) string {
	entries, err := os.ReadDir(serialByDir)
	if err != nil {
		return devPath
	}

	target, err := filepath.EvalSymlinks(devPath)
	if err != nil {
		target = devPath
	}

	for _, entry := range entries {
		link := filepath.Join(serialByDir, entry.Name())
		resolved, err := filepath.EvalSymlinks(link)
		if err != nil {
			continue
		}
		if resolved == target {
			return link
		}
	}
	return devPath
}

// HumanReadableName renders a port the way device pickers show it:
// "<description> - <path>, s/n: <serial> - <manufacturer> - <vid>:<pid>"
func HumanReadableName(info *PortInfo) string {
	serial := info.SerialNumber
	if serial == "" {
		serial = "n/a"
	}
	details := fmt.Sprintf("%s, s/n: %s", info.Path, serial)
	if info.Manufacturer != "" {
		details += " - " + info.Manufacturer
	}
	if info.VendorID != "" {
		details += fmt.Sprintf(" - %s:%s", info.VendorID, info.ProductID)
	}

	description := info.Product
	if description == "" && !info.IsUSB() {
		description = info.Description
	}
	if description == "" {
		return details
	}
	if r := []rune(description); len(r) > 26 {
		description = string(r[:26])
	}
	return description + " - " + details
}

// Device is an enumerated port keyed by its stable path
type Device struct {
	Path string // by-id path when available
	Name string // human readable label
	Info *PortInfo
}

// ListDevices enumerates serial ports with stable paths and display names, in
// ListPorts order.
func ListDevices() ([]Device, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(ports))
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		info, err := GetPortInfo(p)
		if err != nil {
			continue
		}
		stable := SerialByID(p)
		if seen[stable] {
			continue
		}
		seen[stable] = true
		devices = append(devices, Device{
			Path: stable,
			Name: HumanReadableName(info),
			Info: info,
		})
	}
	return devices, nil
}
