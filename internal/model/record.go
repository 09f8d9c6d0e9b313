package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metrics are the four body measurements tracked per day.
// A nil field means "not recorded"; zero is a recorded value.
type Metrics struct {
	PullUps *int
	PushUps *int
	Squats  *int
	Weight  *float64
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Clone returns a deep copy.
func (m Metrics) Clone() Metrics {
	return Metrics{
		PullUps: cloneInt(m.PullUps),
		PushUps: cloneInt(m.PushUps),
		Squats:  cloneInt(m.Squats),
		Weight:  cloneFloat(m.Weight),
	}
}

// HasValues reports whether any metric is recorded. A recorded zero counts.
func (m Metrics) HasValues() bool {
	return m.PullUps != nil || m.PushUps != nil || m.Squats != nil || m.Weight != nil
}

// Validate rejects negative measurements.
func (m Metrics) Validate() error {
	counts := []struct {
		name  string
		value *int
	}{
		{"pullups", m.PullUps},
		{"pushups", m.PushUps},
		{"squats", m.Squats},
	}
	var errs []error
	for _, c := range counts {
		if c.value != nil && *c.value < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %d", c.name, *c.value))
		}
	}
	if m.Weight != nil && *m.Weight < 0 {
		errs = append(errs, fmt.Errorf("weight must be non-negative, got %g", *m.Weight))
	}
	return errors.Join(errs...)
}

// Merge returns m with every field set in other overriding it.
func (m Metrics) Merge(other Metrics) Metrics {
	out := m.Clone()
	if other.PullUps != nil {
		out.PullUps = cloneInt(other.PullUps)
	}
	if other.PushUps != nil {
		out.PushUps = cloneInt(other.PushUps)
	}
	if other.Squats != nil {
		out.Squats = cloneInt(other.Squats)
	}
	if other.Weight != nil {
		out.Weight = cloneFloat(other.Weight)
	}
	return out
}

// String renders "pullups=7 pushups=- squats=- weight=-".
func (m Metrics) String() string {
	var b strings.Builder
	b.WriteString("pullups=")
	b.WriteString(formatInt(m.PullUps))
	b.WriteString(" pushups=")
	b.WriteString(formatInt(m.PushUps))
	b.WriteString(" squats=")
	b.WriteString(formatInt(m.Squats))
	b.WriteString(" weight=")
	if m.Weight == nil {
		b.WriteString("-")
	} else {
		b.WriteString(strconv.FormatFloat(*m.Weight, 'g', -1, 64))
	}
	return b.String()
}

// ProgressRecord is the locally persisted entry for one program day.
type ProgressRecord struct {
	// RowID is the storage key. Day is not unique in storage so that
	// historical double inserts can be detected and cleaned up.
	RowID string

	// Day is the internal day index.
	Day int

	Metrics Metrics
	Photos  [3]PhotoSlot

	// LastModified advances on every local metric or photo mutation.
	LastModified time.Time

	// IsSynced is true only when local state is known to match the server.
	IsSynced bool

	// ShouldDelete marks the whole record for deletion.
	ShouldDelete bool

	// ServerKnown is true once the server has confirmed an entry for this
	// day. It selects update over create when uploading.
	ServerKnown bool
}

// NewLocalRecord returns an unsynced record created by a local user action.
func NewLocalRecord(rowID string, day int, now time.Time) ProgressRecord {
	return ProgressRecord{
		RowID:        rowID,
		Day:          day,
		LastModified: now.UTC(),
	}
}

// Photo returns the slot value at s.
func (r ProgressRecord) Photo(s Slot) PhotoSlot {
	return r.Photos[s]
}

// HasTombstone reports whether any photo slot awaits remote deletion.
func (r ProgressRecord) HasTombstone() bool {
	for _, p := range r.Photos {
		if p.IsTombstoned() {
			return true
		}
	}
	return false
}

// NeedsSync reports whether a sync pass must take a snapshot of r.
func (r ProgressRecord) NeedsSync() bool {
	return !r.IsSynced || r.ShouldDelete || r.HasTombstone()
}

// SetMetrics records measurements. Fields left nil in m are unchanged.
func (r *ProgressRecord) SetMetrics(m Metrics, now time.Time) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.Metrics = r.Metrics.Merge(m)
	r.touch(now)
	return nil
}

// SetPhoto stores new local bytes in slot s. A remote URL already shown in
// the slot is kept until the upload replaces it.
func (r *ProgressRecord) SetPhoto(s Slot, data []byte, now time.Time) error {
	if len(data) == 0 {
		return fmt.Errorf("photo %s: empty image", s)
	}
	r.Photos[s] = PresentSlot(data, r.Photos[s].URL())
	r.touch(now)
	return nil
}

// RemovePhoto clears slot s. A photo the server holds (the slot has a URL)
// is tombstoned; a photo that only ever existed locally is simply dropped.
func (r *ProgressRecord) RemovePhoto(s Slot, now time.Time) {
	current := r.Photos[s]
	switch {
	case current.IsEmpty(), current.IsTombstoned():
		return
	case current.URL() != "":
		r.Photos[s] = TombstonedSlot()
	default:
		r.Photos[s] = EmptySlot()
	}
	r.touch(now)
}

// MarkDeleted flags the record for deletion on the next sync pass.
func (r *ProgressRecord) MarkDeleted(now time.Time) {
	r.ShouldDelete = true
	r.touch(now)
}

func (r *ProgressRecord) touch(now time.Time) {
	r.LastModified = now.UTC()
	r.IsSynced = false
}

// RecordFromResponse hydrates a synced record from a server entry.
func RecordFromResponse(rowID string, resp ProgressResponse, modified time.Time) ProgressRecord {
	rec := ProgressRecord{
		RowID: rowID,
		Day:   ToInternal(resp.ID),
	}
	rec.ApplyRemote(resp, modified)
	return rec
}

// ApplyRemote overwrites metrics and photo URLs with the server's values
// and marks the record synced. LastModified takes the remote timestamp.
func (r *ProgressRecord) ApplyRemote(resp ProgressResponse, modified time.Time) {
	r.Metrics = resp.Metrics()
	for _, s := range Slots {
		r.Photos[s] = PresentSlot(nil, resp.PhotoURL(s))
	}
	r.LastModified = modified.UTC()
	r.IsSynced = true
	r.ShouldDelete = false
	r.ServerKnown = true
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func formatInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
