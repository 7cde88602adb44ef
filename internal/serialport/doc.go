// Package serialport provides serial port access and discovery for the
// B-route radio.
//
// Ports are opened raw (no line discipline) with a VTIME based read timeout,
// so a Read on a silent line returns 0, nil once the timeout expires:
//
//	port, err := serialport.Open("/dev/ttyUSB0",
//	    serialport.WithBaudRate(115200),
//	    serialport.WithReadTimeout(500*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// # Port Discovery
//
// ListDevices combines the /dev scan with sysfs USB metadata and returns each
// port under its /dev/serial/by-id path when one exists, labelled with
// HumanReadableName:
//
//	devices, err := serialport.ListDevices()
//	for _, d := range devices {
//	    fmt.Printf("%s: %s\n", d.Path, d.Name)
//	}
//
// # Error Handling
//
// Open maps errno values to ErrDeviceNotFound, ErrPermissionDenied and
// ErrDeviceInUse; use errors.Is to check them.
//
// # Platform Support
//
// Linux only. USB metadata and device reset rely on sysfs and the usbreset
// utility.
package serialport
