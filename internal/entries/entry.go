// Package entries stores finished configuration records. The store treats
// entry data as an opaque key/value map.
package entries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no entry has the requested ID.
	ErrNotFound = errors.New("entries: entry not found")
	// ErrAlreadyConfigured is returned when an entry with the same domain and
	// unique ID exists.
	ErrAlreadyConfigured = errors.New("entries: already configured")
)

// Entry is a persisted configuration record
type Entry struct {
	EntryID   string
	Domain    string
	Title     string
	UniqueID  string
	Source    string
	Version   int
	Data      map[string]string
	CreatedAt time.Time
}

// Store persists entries
type Store interface {
	Add(ctx context.Context, e *Entry) error
	Get(ctx context.Context, entryID string) (*Entry, error)
	List(ctx context.Context, domain string) ([]Entry, error)
	FindByUniqueID(ctx context.Context, domain, uniqueID string) (*Entry, error)
	Remove(ctx context.Context, entryID string) error
	Close() error
}

// prepare fills the generated fields of a new entry
func prepare(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Version == 0 {
		e.Version = 1
	}
	if e.Data == nil {
		e.Data = map[string]string{}
	}
}

func cloneEntry(e Entry) Entry {
	data := make(map[string]string, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	e.Data = data
	return e
}
