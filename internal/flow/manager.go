// Package flow runs multi-step configuration flows. A flow shows forms,
// validates the submitted input and ends by creating an entry or aborting.
package flow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/allbin/broute/internal/entries"
	"github.com/allbin/broute/internal/logging"
	"github.com/google/uuid"
)

// Manager tracks flows in progress
type Manager struct {
	store entries.Store

	mu        sync.Mutex
	factories map[string]Factory
	progress  map[string]*Flow
}

// NewManager creates a manager that stores finished flows in store
func NewManager(store entries.Store) *Manager {
	return &Manager{
		store:     store,
		factories: make(map[string]Factory),
		progress:  make(map[string]*Flow),
	}
}

// Register makes a handler available for a domain
func (m *Manager) Register(domain string, factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[domain] = factory
}

// ProgressInfo describes a flow waiting for input
type ProgressInfo struct {
	FlowID   string
	Handler  string
	StepID   string
	Context  Context
	UniqueID string
}

// Progress lists flows in progress, ordered by flow ID
func (m *Manager) Progress() []ProgressInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProgressInfo, 0, len(m.progress))
	for _, id := range slices.Sorted(maps.Keys(m.progress)) {
		f := m.progress[id]
		out = append(out, ProgressInfo{
			FlowID:   f.id,
			Handler:  f.domain,
			StepID:   f.stepID,
			Context:  f.context,
			UniqueID: f.uniqueID,
		})
	}
	return out
}

// Init starts a flow for domain. The first step is named after the source.
func (m *Manager) Init(ctx context.Context, domain string, fctx Context, data map[string]string) (*Result, error) {
	m.mu.Lock()
	factory, ok := m.factories[domain]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, domain)
	}
	if fctx.Source == "" {
		fctx.Source = SourceUser
	}
	f := &Flow{
		manager: m,
		id:      uuid.NewString(),
		domain:  domain,
		context: fctx,
	}
	f.handler = factory(f)
	m.progress[f.id] = f
	m.mu.Unlock()

	logging.Debugf("flow: started %s flow %s (source %s)", domain, f.id, fctx.Source)
	res, err := m.runStep(ctx, f, fctx.Source, data)
	if err != nil {
		m.finish(f)
	}
	return res, err
}

// Configure submits user input to the step the flow is waiting on
func (m *Manager) Configure(ctx context.Context, flowID string, input map[string]string) (*Result, error) {
	f, err := m.lookup(flowID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	stepID, schema := f.stepID, f.schema
	m.mu.Unlock()

	if n, ok := f.handler.(Normalizer); ok {
		input = n.Normalize(stepID, input)
	}
	if err := schema.Validate(input); err != nil {
		return nil, err
	}
	return m.runStep(ctx, f, stepID, input)
}

// Abort drops a flow in progress
func (m *Manager) Abort(flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.progress[flowID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, flowID)
	}
	delete(m.progress, flowID)
	logging.Debugf("flow: aborted %s", flowID)
	return nil
}

func (m *Manager) lookup(flowID string) (*Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.progress[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, flowID)
	}
	return f, nil
}

func (m *Manager) finish(f *Flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progress, f.id)
}

func (m *Manager) runStep(ctx context.Context, f *Flow, stepID string, input map[string]string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result, err := f.handler.Step(ctx, stepID, input)
	if err != nil {
		var abort *AbortFlow
		if !errors.As(err, &abort) {
			// The flow stays on its current step so the caller may retry.
			return nil, fmt.Errorf("%s step %s: %w", f.domain, stepID, err)
		}
		result = f.Abort(abort.Reason)
	}
	if result == nil {
		return nil, fmt.Errorf("%s step %s returned no result", f.domain, stepID)
	}
	result.FlowID = f.id
	result.Handler = f.domain

	switch result.Type {
	case ResultForm:
		m.mu.Lock()
		f.stepID = result.StepID
		f.schema = result.Schema
		m.mu.Unlock()
		return result, nil

	case ResultCreateEntry:
		m.finish(f)
		entry := &entries.Entry{
			Domain:   f.domain,
			Title:    result.Title,
			UniqueID: f.UniqueID(),
			Source:   f.context.Source,
			Version:  1,
			Data:     result.Data,
		}
		if v, ok := f.handler.(Versioned); ok {
			entry.Version = v.Version()
		}
		if err := m.store.Add(ctx, entry); err != nil {
			if errors.Is(err, entries.ErrAlreadyConfigured) {
				return &Result{Type: ResultAbort, FlowID: f.id, Handler: f.domain, Reason: "already_configured"}, nil
			}
			return nil, fmt.Errorf("store entry: %w", err)
		}
		result.Entry = entry
		logging.Infof("flow: created %s entry %q (%s)", f.domain, entry.Title, entry.EntryID)
		return result, nil

	case ResultAbort:
		m.finish(f)
		logging.Infof("flow: %s flow %s aborted: %s", f.domain, f.id, result.Reason)
		return result, nil

	default:
		return nil, fmt.Errorf("%s step %s: unsupported result type %q", f.domain, stepID, result.Type)
	}
}

// String renders a result for logs
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", r.Type)
	switch r.Type {
	case ResultForm:
		fmt.Fprintf(&b, " step=%s", r.StepID)
		for _, k := range slices.Sorted(maps.Keys(r.Errors)) {
			fmt.Fprintf(&b, " error[%s]=%s", k, r.Errors[k])
		}
	case ResultCreateEntry:
		fmt.Fprintf(&b, " title=%q", r.Title)
	case ResultAbort:
		fmt.Fprintf(&b, " reason=%s", r.Reason)
	}
	return b.String()
}
