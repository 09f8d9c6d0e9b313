package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/testutil"
)

// DefaultNow is the clock reading used when a scenario sets no "now".
const DefaultNow = "2026-03-10T12:00:00Z"

// FailAll in a failure list makes every client operation fail.
const FailAll = "all"

// Scenario defines a sync conformance scenario.
// A scenario seeds the local replica and the fake server, runs one or more
// sync passes against the real engine, and asserts on the recorded calls
// and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the RFC 3339 clock reading at the first pass.
	// Defaults to DefaultNow.
	Now string `yaml:"now,omitempty"`

	// Records seeds the local store.
	Records []RecordSpec `yaml:"records,omitempty"`

	// Remote seeds the fake server.
	Remote []RemoteSpec `yaml:"remote,omitempty"`

	// Failures lists client operations that fail in every pass.
	Failures []string `yaml:"failures,omitempty"`

	// Passes configures each sync pass. An empty list runs one pass.
	Passes []PassStep `yaml:"passes,omitempty"`

	// Assertions validate the calls and the final state.
	// Supported types: call_count, call_order, record, record_count,
	// remote, failures
	Assertions []Assertion `yaml:"assertions"`
}

// RecordSpec is one seeded local progress record.
type RecordSpec struct {
	ID           string      `yaml:"id"`
	Day          int         `yaml:"day"`
	LastModified string      `yaml:"last_modified"`
	Synced       bool        `yaml:"synced,omitempty"`
	ShouldDelete bool        `yaml:"should_delete,omitempty"`
	ServerKnown  bool        `yaml:"server_known,omitempty"`
	Metrics      MetricsSpec `yaml:"metrics,omitempty"`
	Photos       PhotosSpec  `yaml:"photos,omitempty"`
}

// MetricsSpec holds optional measurements. Omitted means not recorded.
type MetricsSpec struct {
	PullUps *int     `yaml:"pullups,omitempty"`
	PushUps *int     `yaml:"pushups,omitempty"`
	Squats  *int     `yaml:"squats,omitempty"`
	Weight  *float64 `yaml:"weight,omitempty"`
}

// PhotosSpec holds the three local photo slots.
type PhotosSpec struct {
	Front *PhotoSpec `yaml:"front,omitempty"`
	Back  *PhotoSpec `yaml:"back,omitempty"`
	Side  *PhotoSpec `yaml:"side,omitempty"`
}

// PhotoSpec is one local slot: bytes and/or a URL, or a tombstone.
type PhotoSpec struct {
	Bytes      string `yaml:"bytes,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Tombstoned bool   `yaml:"tombstoned,omitempty"`
}

// RemoteSpec is one seeded server entry. Day is the server day number.
type RemoteSpec struct {
	Day        int              `yaml:"day"`
	Metrics    MetricsSpec      `yaml:"metrics,omitempty"`
	CreateDate string           `yaml:"create_date"`
	ModifyDate string           `yaml:"modify_date,omitempty"`
	Photos     RemotePhotosSpec `yaml:"photos,omitempty"`
}

// RemotePhotosSpec holds the server's photo URLs.
type RemotePhotosSpec struct {
	Front string `yaml:"front,omitempty"`
	Back  string `yaml:"back,omitempty"`
	Side  string `yaml:"side,omitempty"`
}

// PassStep configures one sync pass.
type PassStep struct {
	// Advance moves the clock forward before the pass (Go duration syntax).
	Advance string `yaml:"advance,omitempty"`

	// Fail lists operations that fail in this pass only, on top of the
	// scenario-wide failures.
	Fail []string `yaml:"fail,omitempty"`
}

// Assertion validates the calls or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_count": Op was called exactly Count times over all passes
	// - "call_order": Calls appear in this order (gaps allowed)
	// - "record": the local record for Day matches Expect, or is Absent
	// - "record_count": the store holds exactly Count records
	// - "remote": the server entry for Day matches Metrics, or is Absent
	// - "failures": pass Pass (1-based) reported exactly Codes
	Type string `yaml:"type"`

	Op    string   `yaml:"op,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Calls []string `yaml:"calls,omitempty"`

	Day    int           `yaml:"day,omitempty"`
	Absent bool          `yaml:"absent,omitempty"`
	Expect *RecordExpect `yaml:"expect,omitempty"`

	Metrics string `yaml:"metrics,omitempty"`

	Pass  int      `yaml:"pass,omitempty"`
	Codes []string `yaml:"codes,omitempty"`
}

// RecordExpect lists the record fields to check. Unset fields are not
// checked. Photo slots compare against PhotoSlot.Describe and Metrics
// against Metrics.String.
type RecordExpect struct {
	Synced       *bool  `yaml:"synced,omitempty"`
	ShouldDelete *bool  `yaml:"should_delete,omitempty"`
	ServerKnown  *bool  `yaml:"server_known,omitempty"`
	Metrics      string `yaml:"metrics,omitempty"`
	Front        string `yaml:"front,omitempty"`
	Back         string `yaml:"back,omitempty"`
	Side         string `yaml:"side,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount   = "call_count"
	AssertCallOrder   = "call_order"
	AssertRecord      = "record"
	AssertRecordCount = "record_count"
	AssertRemote      = "remote"
	AssertFailures    = "failures"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// StartTime returns the parsed clock reading for the first pass.
func (s *Scenario) StartTime() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	t, err := time.Parse(time.RFC3339Nano, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

// PassCount returns how many passes the scenario runs.
func (s *Scenario) PassCount() int {
	if len(s.Passes) == 0 {
		return 1
	}
	return len(s.Passes)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return err
	}

	ids := make(map[string]bool, len(s.Records))
	for i, rec := range s.Records {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		if ids[rec.ID] {
			return fmt.Errorf("records[%d]: duplicate id %q", i, rec.ID)
		}
		ids[rec.ID] = true
	}

	days := make(map[int]bool, len(s.Remote))
	for i, entry := range s.Remote {
		if err := validateRemote(entry); err != nil {
			return fmt.Errorf("remote[%d]: %w", i, err)
		}
		if days[entry.Day] {
			return fmt.Errorf("remote[%d]: duplicate day %d", i, entry.Day)
		}
		days[entry.Day] = true
	}

	if err := validateOps(s.Failures); err != nil {
		return fmt.Errorf("failures: %w", err)
	}
	for i, step := range s.Passes {
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("passes[%d].advance: %w", i, err)
			}
		}
		if err := validateOps(step.Fail); err != nil {
			return fmt.Errorf("passes[%d].fail: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.PassCount()); err != nil {
			return err
		}
	}
	return nil
}

func validateRecord(rec RecordSpec) error {
	if rec.ID == "" {
		return fmt.Errorf("id is required")
	}
	if rec.Day < 1 {
		return fmt.Errorf("day must be positive, got %d", rec.Day)
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.LastModified); err != nil {
		return fmt.Errorf("last_modified: %w", err)
	}
	if err := rec.Metrics.toModel().Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	for _, p := range []*PhotoSpec{rec.Photos.Front, rec.Photos.Back, rec.Photos.Side} {
		if p != nil && p.Tombstoned && (p.Bytes != "" || p.URL != "") {
			return fmt.Errorf("a tombstoned photo cannot carry bytes or a url")
		}
	}
	return nil
}

func validateRemote(entry RemoteSpec) error {
	if entry.Day < 1 {
		return fmt.Errorf("day must be positive, got %d", entry.Day)
	}
	if _, err := model.ParseServerTime(entry.CreateDate); err != nil {
		return fmt.Errorf("create_date: %w", err)
	}
	if entry.ModifyDate != "" {
		if _, err := model.ParseServerTime(entry.ModifyDate); err != nil {
			return fmt.Errorf("modify_date: %w", err)
		}
	}
	return nil
}

func validateOps(ops []string) error {
	for _, op := range ops {
		if op != FailAll && !slices.Contains(testutil.AllOps, op) {
			return fmt.Errorf("unknown operation %q", op)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, passes int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallCount:
		if !slices.Contains(testutil.AllOps, a.Op) {
			return fmt.Errorf("assertions[%d]: known op is required for call_count, got %q", index, a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertRecord:
		if a.Day < 1 {
			return fmt.Errorf("assertions[%d]: day is required for record", index)
		}
		if a.Absent == (a.Expect != nil) {
			return fmt.Errorf("assertions[%d]: record needs exactly one of expect or absent", index)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRemote:
		if a.Day < 1 {
			return fmt.Errorf("assertions[%d]: day is required for remote", index)
		}
		if a.Absent == (a.Metrics != "") {
			return fmt.Errorf("assertions[%d]: remote needs exactly one of metrics or absent", index)
		}
	case AssertFailures:
		if a.Pass < 1 || a.Pass > passes {
			return fmt.Errorf("assertions[%d]: pass must be between 1 and %d for failures", index, passes)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (m MetricsSpec) toModel() model.Metrics {
	return model.Metrics{PullUps: m.PullUps, PushUps: m.PushUps, Squats: m.Squats, Weight: m.Weight}.Clone()
}

func (p *PhotoSpec) toModel() model.PhotoSlot {
	switch {
	case p == nil:
		return model.EmptySlot()
	case p.Tombstoned:
		return model.TombstonedSlot()
	default:
		return model.PresentSlot([]byte(p.Bytes), p.URL)
	}
}

// toModel builds the seeded record. Validation has already run.
func (r RecordSpec) toModel() model.ProgressRecord {
	modified, _ := time.Parse(time.RFC3339Nano, r.LastModified)
	rec := model.ProgressRecord{
		RowID:        r.ID,
		Day:          r.Day,
		Metrics:      r.Metrics.toModel(),
		LastModified: modified.UTC(),
		IsSynced:     r.Synced,
		ShouldDelete: r.ShouldDelete,
		ServerKnown:  r.ServerKnown,
	}
	rec.Photos[model.SlotFront] = r.Photos.Front.toModel()
	rec.Photos[model.SlotBack] = r.Photos.Back.toModel()
	rec.Photos[model.SlotSide] = r.Photos.Side.toModel()
	return rec
}

func (r RemoteSpec) toModel() model.ProgressResponse {
	m := r.Metrics.toModel()
	resp := model.ProgressResponse{
		ID:         r.Day,
		PullUps:    m.PullUps,
		PushUps:    m.PushUps,
		Squats:     m.Squats,
		Weight:     m.Weight,
		CreateDate: r.CreateDate,
	}
	if r.ModifyDate != "" {
		modify := r.ModifyDate
		resp.ModifyDate = &modify
	}
	resp.SetPhotoURL(model.SlotFront, r.Photos.Front)
	resp.SetPhotoURL(model.SlotBack, r.Photos.Back)
	resp.SetPhotoURL(model.SlotSide, r.Photos.Side)
	return resp
}
