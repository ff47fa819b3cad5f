// Package store persists the saved-form collection. The durable layout is a
// single well-known key inside a local key/value file (bbolt): the collection
// is read once at startup, defaulting to empty when absent or malformed, and
// rewritten in full inside one write transaction on every successful save.
package store

import (
	"errors"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store: store is closed")

// Store is the durable home of the saved-form collection.
type Store interface {
	// Load reads the full collection. A missing or unreadable collection
	// yields an empty list, not an error; errors are reserved for the
	// storage medium itself being unavailable.
	Load() ([]model.SavedForm, error)
	// Save atomically replaces the persisted collection. Either the whole
	// list lands or the prior persisted state is left unchanged.
	Save(forms []model.SavedForm) error
}
