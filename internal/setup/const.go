// Package setup implements the Smart Meter B Route configuration flow: pick
// the radio, enter the route-B credentials and verify them against the meter.
package setup

// Domain is the flow handler and entry domain
const Domain = "smart_meter_b_route"

// EntryTitle is the title of created entries
const EntryTitle = "Smart Meter B Route"

// Version of the entry data layout
const Version = 1

// Entry data keys
const (
	ConfDevice   = "device"
	ConfID       = "id"
	ConfPassword = "password"
)

// Form error values
const (
	ErrorCannotConnect   = "cannot_connect"
	ErrorInvalidAuth     = "invalid_auth"
	ErrorUnknown         = "unknown"
	ErrorInvalidID       = "invalid_id"
	ErrorInvalidPassword = "invalid_password"
)

// AbortNoDevices is the abort reason when no serial port exists
const AbortNoDevices = "no_devices_found"
