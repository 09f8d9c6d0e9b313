package prefs

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("prefs: key not found")

// Keys persisted by fitsync.
const (
	StartDateKey  = "WorkoutStartDate"
	MaxReadDayKey = "WorkoutMaxReadInfoPostDay"
	MigratedKey   = "SharedDefaultsMigrated"
)

// MigratedKeys are copied from the legacy store into the shared store.
var MigratedKeys = []string{StartDateKey, MaxReadDayKey}

// Store is a string key/value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(key string) (string, error)
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
