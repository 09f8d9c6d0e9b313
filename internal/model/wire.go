package model

import (
	"fmt"
	"sort"
	"time"
)

// ProgressResponse is the server's representation of one progress entry.
// ID is the server day number.
type ProgressResponse struct {
	ID         int      `json:"id"`
	PullUps    *int     `json:"pullups,omitempty"`
	PushUps    *int     `json:"pushups,omitempty"`
	Squats     *int     `json:"squats,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	CreateDate string   `json:"createDate"`
	ModifyDate *string  `json:"modifyDate,omitempty"`
	PhotoFront *string  `json:"photoFront,omitempty"`
	PhotoBack  *string  `json:"photoBack,omitempty"`
	PhotoSide  *string  `json:"photoSide,omitempty"`
}

// Metrics extracts the measurements.
func (r ProgressResponse) Metrics() Metrics {
	return Metrics{
		PullUps: cloneInt(r.PullUps),
		PushUps: cloneInt(r.PushUps),
		Squats:  cloneInt(r.Squats),
		Weight:  cloneFloat(r.Weight),
	}
}

// PhotoURL returns the URL for slot s, or "".
func (r ProgressResponse) PhotoURL(s Slot) string {
	var p *string
	switch s {
	case SlotFront:
		p = r.PhotoFront
	case SlotBack:
		p = r.PhotoBack
	case SlotSide:
		p = r.PhotoSide
	}
	if p == nil {
		return ""
	}
	return *p
}

// SetPhotoURL sets or clears (url == "") the URL for slot s.
func (r *ProgressResponse) SetPhotoURL(s Slot, url string) {
	var p *string
	if url != "" {
		p = &url
	}
	switch s {
	case SlotFront:
		r.PhotoFront = p
	case SlotBack:
		r.PhotoBack = p
	case SlotSide:
		r.PhotoSide = p
	}
}

// ModifiedAt is the entry's last-writer timestamp: the modify date, or the
// create date when the entry was never modified.
func (r ProgressResponse) ModifiedAt() (time.Time, error) {
	if r.ModifyDate != nil && *r.ModifyDate != "" {
		t, err := ParseServerTime(*r.ModifyDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("day %d modifyDate: %w", r.ID, err)
		}
		return t, nil
	}
	t, err := ParseServerTime(r.CreateDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("day %d createDate: %w", r.ID, err)
	}
	return t, nil
}

// ProgressRequest is the upsert payload. ID is the server day number.
// Uploads is keyed by multipart field name (photo_front, photo_back,
// photo_side).
type ProgressRequest struct {
	ID      int
	Metrics Metrics
	Uploads map[string][]byte
}

// UploadFields returns the upload keys in sorted order.
func (r ProgressRequest) UploadFields() []string {
	fields := make([]string, 0, len(r.Uploads))
	for k := range r.Uploads {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// RunResponse describes the server's current run.
type RunResponse struct {
	Date             *string `json:"date,omitempty"`
	MaxForAllRunsDay *int    `json:"maxForAllRunsDay,omitempty"`
}

// StartDate parses Date. A date without a time of day is read as midnight
// in loc (UTC when loc is nil). ok is false when the server reported no date.
func (r RunResponse) StartDate(loc *time.Location) (t time.Time, ok bool, err error) {
	if r.Date == nil || *r.Date == "" {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if d, err := time.ParseInLocation(time.DateOnly, *r.Date, loc); err == nil {
		return d, true, nil
	}
	t, err = ParseServerTime(*r.Date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("run date: %w", err)
	}
	return t, true, nil
}

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseServerTime accepts the timestamp layouts the API emits. Values
// without a zone are read as UTC.
func ParseServerTime(s string) (time.Time, error) {
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatServerTime renders t the way requests carry timestamps.
func FormatServerTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
