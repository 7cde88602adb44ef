package flow

import (
	"errors"
	"fmt"

	"github.com/allbin/broute/internal/entries"
)

// ResultType tells the caller what a step produced
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// Flow sources
const (
	SourceUser = "user"
	SourceUSB  = "usb"
)

// Result is the outcome of a flow step
type Result struct {
	Type        ResultType
	FlowID      string
	Handler     string
	StepID      string
	Errors      map[string]string
	Schema      *Schema
	Title       string
	Data        map[string]string
	Reason      string
	Description string

	// Entry is the stored record for create_entry results
	Entry *entries.Entry
}

var (
	// ErrUnknownHandler is returned by Init for unregistered domains.
	ErrUnknownHandler = errors.New("flow: unknown handler")
	// ErrUnknownFlow is returned for flow IDs that are not in progress.
	ErrUnknownFlow = errors.New("flow: unknown flow")
	// ErrUnknownStep is returned by handlers asked for a step they lack.
	ErrUnknownStep = errors.New("flow: unknown step")
)

// AbortFlow ends a flow from inside a step. Steps return it as an error and
// the manager turns it into an abort result.
type AbortFlow struct {
	Reason string
}

func (e *AbortFlow) Error() string {
	return fmt.Sprintf("flow aborted: %s", e.Reason)
}
