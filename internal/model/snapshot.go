package model

import (
	"bytes"
	"time"
)

// Snapshot is the immutable projection of a record taken when a sync pass
// starts. All slices are copies; nothing aliases the live record.
type Snapshot struct {
	RowID   string
	Day     int
	Metrics Metrics

	// Uploads holds bytes for slots that are present with local bytes.
	Uploads map[Slot][]byte

	// Deletes lists tombstoned slots in processing order.
	Deletes []Slot

	ShouldDelete bool
	IsSynced     bool
	ServerKnown  bool
	LastModified time.Time
}

// TakeSnapshot copies r.
func TakeSnapshot(r ProgressRecord) Snapshot {
	snap := Snapshot{
		RowID:        r.RowID,
		Day:          r.Day,
		Metrics:      r.Metrics.Clone(),
		ShouldDelete: r.ShouldDelete,
		IsSynced:     r.IsSynced,
		ServerKnown:  r.ServerKnown,
		LastModified: r.LastModified,
	}
	for _, s := range Slots {
		p := r.Photos[s]
		switch {
		case p.IsTombstoned():
			snap.Deletes = append(snap.Deletes, s)
		case p.HasUpload():
			if snap.Uploads == nil {
				snap.Uploads = make(map[Slot][]byte, len(Slots))
			}
			snap.Uploads[s] = bytes.Clone(p.Bytes())
		}
	}
	return snap
}

// NeedsUpload reports whether the snapshot carries photo bytes or any
// recorded metric, zero included.
func (s Snapshot) NeedsUpload() bool {
	return len(s.Uploads) > 0 || s.Metrics.HasValues()
}

// ExternalDay is the server's number for the snapshot's day.
func (s Snapshot) ExternalDay() int {
	return ToExternal(s.Day)
}

// Request builds the upsert payload: the full metric set plus one upload
// entry per slot with bytes, keyed by multipart field name.
func (s Snapshot) Request() ProgressRequest {
	req := ProgressRequest{
		ID:      s.ExternalDay(),
		Metrics: s.Metrics.Clone(),
	}
	if len(s.Uploads) > 0 {
		req.Uploads = make(map[string][]byte, len(s.Uploads))
		for slot, data := range s.Uploads {
			req.Uploads[slot.Field()] = bytes.Clone(data)
		}
	}
	return req
}
