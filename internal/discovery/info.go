package discovery

import (
	"strings"

	"github.com/allbin/broute/internal/serialport"
)

// Keys of the flow data built from a UsbServiceInfo
const (
	KeyDevice       = "device"
	KeyVID          = "vid"
	KeyPID          = "pid"
	KeySerialNumber = "serial_number"
	KeyManufacturer = "manufacturer"
	KeyDescription  = "description"
)

// UsbServiceInfo describes a discovered USB serial device
type UsbServiceInfo struct {
	Device       string
	VID          string
	PID          string
	SerialNumber string
	Manufacturer string
	Description  string
}

// InfoFromDevice builds discovery info from an enumerated port
func InfoFromDevice(d serialport.Device) UsbServiceInfo {
	info := UsbServiceInfo{Device: d.Path}
	if d.Info == nil {
		return info
	}
	info.VID = strings.ToUpper(d.Info.VendorID)
	info.PID = strings.ToUpper(d.Info.ProductID)
	info.SerialNumber = d.Info.SerialNumber
	info.Manufacturer = d.Info.Manufacturer
	info.Description = d.Info.Product
	return info
}

// Data encodes the info as flow init data
func (u UsbServiceInfo) Data() map[string]string {
	return map[string]string{
		KeyDevice:       u.Device,
		KeyVID:          u.VID,
		KeyPID:          u.PID,
		KeySerialNumber: u.SerialNumber,
		KeyManufacturer: u.Manufacturer,
		KeyDescription:  u.Description,
	}
}

// InfoFromData decodes flow init data produced by Data
func InfoFromData(data map[string]string) UsbServiceInfo {
	return UsbServiceInfo{
		Device:       data[KeyDevice],
		VID:          data[KeyVID],
		PID:          data[KeyPID],
		SerialNumber: data[KeySerialNumber],
		Manufacturer: data[KeyManufacturer],
		Description:  data[KeyDescription],
	}
}
