package skstack

import (
	"errors"
	"fmt"
)

var (
	// ErrScanFailure means no PAN answered the active scan, typically the meter
	// is out of range or B-route service has not been enabled for it.
	ErrScanFailure = errors.New("skstack: no PAN found during active scan")
	// ErrJoinFailure means PANA authentication was rejected (EVENT 24),
	// usually a wrong route-B ID or password.
	ErrJoinFailure = errors.New("skstack: PANA authentication failed")
	// ErrTimeout is returned when the radio stops answering.
	ErrTimeout = errors.New("skstack: timeout waiting for response")
	// ErrUnexpectedResponse is returned for replies that do not fit the command.
	ErrUnexpectedResponse = errors.New("skstack: unexpected response")
)

// CommandError is a FAIL ERxx reply to a command
type CommandError struct {
	Command string
	Code    string
}

func (e *CommandError) Error() string {
	desc, ok := errorCodes[e.Code]
	if !ok {
		desc = "unknown error"
	}
	return fmt.Sprintf("skstack: %s failed with %s (%s)", e.Command, e.Code, desc)
}

var errorCodes = map[string]string{
	"ER04": "unsupported command",
	"ER05": "wrong number of parameters",
	"ER06": "parameter out of range",
	"ER09": "UART input error",
	"ER10": "command completed with error",
}
