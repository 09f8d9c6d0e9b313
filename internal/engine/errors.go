package engine

import (
	"errors"
	"fmt"
)

// SyncError records one per-item failure inside a sync pass.
type SyncError struct {
	// Code identifies the failing step.
	Code SyncErrorCode

	// Day is the internal day the step was working on, zero for
	// pass-wide steps such as the remote fetch.
	Day int

	// Slot names the photo slot for photo deletions.
	Slot string

	// RowID identifies the local record, when there is one.
	RowID string

	Err error
}

// SyncErrorCode categorizes sync failures.
type SyncErrorCode string

const (
	// ErrCodeDeleteRecord: the server rejected or never received a record deletion.
	ErrCodeDeleteRecord SyncErrorCode = "DELETE_RECORD"

	// ErrCodeDeletePhoto: a photo deletion failed; the slot stays tombstoned.
	ErrCodeDeletePhoto SyncErrorCode = "DELETE_PHOTO"

	// ErrCodeUpload: a create or update failed; the record stays unsynced.
	ErrCodeUpload SyncErrorCode = "UPLOAD"

	// ErrCodeFetchRemote: the remote list could not be fetched; merge skipped.
	ErrCodeFetchRemote SyncErrorCode = "FETCH_REMOTE"

	// ErrCodeRemoteShape: a remote entry could not be interpreted.
	ErrCodeRemoteShape SyncErrorCode = "REMOTE_SHAPE"

	// ErrCodeLocalStore: a local write failed after a network step.
	ErrCodeLocalStore SyncErrorCode = "LOCAL_STORE"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	switch {
	case e.Day != 0 && e.Slot != "":
		return fmt.Sprintf("%s: day %d slot %s: %v", e.Code, e.Day, e.Slot, e.Err)
	case e.Day != 0:
		return fmt.Sprintf("%s: day %d: %v", e.Code, e.Day, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsLocalStoreError returns true if err is a local write failure.
// Uses errors.As to handle wrapped errors.
func IsLocalStoreError(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeLocalStore
	}
	return false
}
