package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/allbin/broute/internal/entries"
)

// Context carries how a flow was started
type Context struct {
	Source string
}

// Handler implements the steps of one integration. Step is called with the
// source as step ID when a flow starts, then with the step ID of the last
// form for every submission. input is nil when a step is entered without
// user input.
type Handler interface {
	Step(ctx context.Context, stepID string, input map[string]string) (*Result, error)
}

// Normalizer handlers rewrite submitted input before it is checked against
// the form, e.g. to map an alias onto one of the offered options.
type Normalizer interface {
	Normalize(stepID string, input map[string]string) map[string]string
}

// Versioned handlers set the version stored in created entries
type Versioned interface {
	Version() int
}

// Factory builds a handler bound to a new flow
type Factory func(f *Flow) Handler

// Flow is the per-flow state shared with the handler
type Flow struct {
	manager *Manager
	id      string
	domain  string
	context Context
	handler Handler

	mu sync.Mutex // serialises steps

	// guarded by manager.mu
	stepID   string
	schema   *Schema
	uniqueID string
}

func (f *Flow) ID() string       { return f.id }
func (f *Flow) Domain() string   { return f.domain }
func (f *Flow) Context() Context { return f.context }

// UniqueID returns the unique ID set by the handler, if any
func (f *Flow) UniqueID() string {
	f.manager.mu.Lock()
	defer f.manager.mu.Unlock()
	return f.uniqueID
}

// SetUniqueID assigns the identity of the device being configured. With
// raiseOnProgress another flow of the domain holding the same ID aborts this
// one with already_in_progress.
func (f *Flow) SetUniqueID(ctx context.Context, uniqueID string, raiseOnProgress bool) error {
	f.manager.mu.Lock()
	defer f.manager.mu.Unlock()

	if raiseOnProgress {
		for _, other := range f.manager.progress {
			if other != f && other.domain == f.domain && other.uniqueID == uniqueID {
				return &AbortFlow{Reason: "already_in_progress"}
			}
		}
	}
	f.uniqueID = uniqueID
	return nil
}

// AbortIfUniqueIDConfigured aborts with already_configured when an entry
// with this flow's unique ID exists.
func (f *Flow) AbortIfUniqueIDConfigured(ctx context.Context) error {
	uid := f.UniqueID()
	if uid == "" {
		return nil
	}
	_, err := f.manager.store.FindByUniqueID(ctx, f.domain, uid)
	switch {
	case err == nil:
		return &AbortFlow{Reason: "already_configured"}
	case errors.Is(err, entries.ErrNotFound):
		return nil
	default:
		return err
	}
}

// ShowForm asks the user for input
func (f *Flow) ShowForm(stepID string, schema *Schema, errs map[string]string) *Result {
	if errs == nil {
		errs = map[string]string{}
	}
	return &Result{
		Type:   ResultForm,
		StepID: stepID,
		Schema: schema,
		Errors: errs,
	}
}

// CreateEntry finishes the flow by storing an entry
func (f *Flow) CreateEntry(title string, data map[string]string) *Result {
	return &Result{
		Type:  ResultCreateEntry,
		Title: title,
		Data:  data,
	}
}

// Abort finishes the flow without an entry
func (f *Flow) Abort(reason string) *Result {
	return &Result{
		Type:   ResultAbort,
		Reason: reason,
	}
}
