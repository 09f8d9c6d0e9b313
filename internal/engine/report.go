package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Report summarizes one sync pass.
type Report struct {
	// Pass is the pass number; zero when Skipped.
	Pass int64

	// Skipped is set when another pass was already in flight.
	Skipped bool

	DuplicatesRemoved int
	RecordsDeleted    int
	PhotosDeleted     int
	Uploaded          int
	MarkedSynced      int
	Hydrated          int
	Overwritten       int
	Tombstoned        int

	// MergeSkipped is set when the remote fetch failed.
	MergeSkipped bool

	Failures []*SyncError
}

// Err joins the pass's failures, or returns nil.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Changed reports whether the pass altered local or remote state.
func (r Report) Changed() bool {
	return r.DuplicatesRemoved+r.RecordsDeleted+r.PhotosDeleted+r.Uploaded+
		r.MarkedSynced+r.Hydrated+r.Overwritten+r.Tombstoned > 0
}

// String renders a one-line summary.
func (r Report) String() string {
	if r.Skipped {
		return "skipped (pass in flight)"
	}
	parts := []string{fmt.Sprintf("pass %d", r.Pass)}
	counts := []struct {
		name string
		n    int
	}{
		{"duplicates removed", r.DuplicatesRemoved},
		{"deleted", r.RecordsDeleted},
		{"photos deleted", r.PhotosDeleted},
		{"uploaded", r.Uploaded},
		{"marked synced", r.MarkedSynced},
		{"hydrated", r.Hydrated},
		{"overwritten", r.Overwritten},
		{"tombstoned", r.Tombstoned},
	}
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", c.name, c.n))
		}
	}
	if r.MergeSkipped {
		parts = append(parts, "merge skipped")
	}
	if len(r.Failures) > 0 {
		parts = append(parts, fmt.Sprintf("failures=%d", len(r.Failures)))
	}
	return strings.Join(parts, " ")
}
