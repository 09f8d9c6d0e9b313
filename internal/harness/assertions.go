package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
	"github.com/roach88/fitsync/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes the recorded calls to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Calls    []string // Every client call, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCalls:\n")
		for i, c := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
		}
	}
	return buf.String()
}

// AssertionContext provides the final state for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Remote *testutil.FakeClient
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallCount:
			err = assertCallCount(result.Calls(), assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Calls(), assertion)
		case AssertFailures:
			err = assertFailures(result, assertion)
		case AssertRecord, AssertRecordCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
				break
			}
			if assertion.Type == AssertRecord {
				err = assertRecord(actx.Ctx, actx.Store, assertion)
			} else {
				err = assertRecordCount(actx.Ctx, actx.Store, assertion)
			}
		case AssertRemote:
			if actx == nil || actx.Remote == nil {
				err = fmt.Errorf("assertion[%d]: remote requires a fake server", i)
				break
			}
			err = assertRemote(actx.Remote, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// callOp returns the operation name of a rendered call.
func callOp(call string) string {
	op, _, _ := strings.Cut(call, " ")
	return op
}

// assertCallCount checks that the operation ran exactly the expected number of times.
func assertCallCount(calls []string, assertion Assertion) error {
	count := 0
	for _, c := range calls {
		if callOp(c) == assertion.Op {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d calls", count),
			Calls:    calls,
		}
	}
	return nil
}

// assertCallOrder checks that the calls appear in the specified order.
// Calls don't need to be consecutive (intervening calls are allowed).
func assertCallOrder(calls []string, assertion Assertion) error {
	next := 0
	for _, c := range calls {
		if next < len(assertion.Calls) && c == assertion.Calls[next] {
			next++
		}
	}
	if next == len(assertion.Calls) {
		return nil
	}

	actual := fmt.Sprintf("missing or out of order: %s", assertion.Calls[next])
	if !slices.Contains(calls, assertion.Calls[next]) {
		actual = fmt.Sprintf("missing call: %s", assertion.Calls[next])
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
		Actual:   actual,
		Calls:    calls,
	}
}

// assertFailures checks the failure codes one pass reported.
func assertFailures(result *Result, assertion Assertion) error {
	if assertion.Pass < 1 || assertion.Pass > len(result.Passes) {
		return fmt.Errorf("failures assertion: pass %d not run", assertion.Pass)
	}
	got := result.Passes[assertion.Pass-1].Codes
	if slices.Equal(got, assertion.Codes) || (len(got) == 0 && len(assertion.Codes) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFailures,
		Expected: fmt.Sprintf("pass %d failures %v", assertion.Pass, assertion.Codes),
		Actual:   fmt.Sprintf("failures %v", got),
	}
}

// assertRecord checks the local record for a day.
func assertRecord(ctx context.Context, st *store.Store, assertion Assertion) error {
	rec, err := st.RecordForDay(ctx, assertion.Day)
	if errors.Is(err, store.ErrRecordNotFound) {
		if assertion.Absent {
			return nil
		}
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record for day %d", assertion.Day),
			Actual:   "record not found",
		}
	}
	if err != nil {
		return fmt.Errorf("read record for day %d: %w", assertion.Day, err)
	}
	if assertion.Absent {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("no record for day %d", assertion.Day),
			Actual:   describeRecord(rec),
		}
	}

	want := assertion.Expect
	checks := []struct {
		field string
		skip  bool
		want  string
		got   string
	}{
		{"synced", want.Synced == nil, formatBool(want.Synced), fmt.Sprint(rec.IsSynced)},
		{"should_delete", want.ShouldDelete == nil, formatBool(want.ShouldDelete), fmt.Sprint(rec.ShouldDelete)},
		{"server_known", want.ServerKnown == nil, formatBool(want.ServerKnown), fmt.Sprint(rec.ServerKnown)},
		{"metrics", want.Metrics == "", want.Metrics, rec.Metrics.String()},
		{"front", want.Front == "", want.Front, rec.Photo(model.SlotFront).Describe()},
		{"back", want.Back == "", want.Back, rec.Photo(model.SlotBack).Describe()},
		{"side", want.Side == "", want.Side, rec.Photo(model.SlotSide).Describe()},
	}
	for _, c := range checks {
		if c.skip || c.want == c.got {
			continue
		}
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("day %d %s = %s", assertion.Day, c.field, c.want),
			Actual:   fmt.Sprintf("day %d %s = %s", assertion.Day, c.field, c.got),
		}
	}
	return nil
}

// assertRecordCount checks how many records the store holds.
func assertRecordCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	records, err := st.Records(ctx)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records", assertion.Count),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// assertRemote checks the fake server's entry for a server day.
func assertRemote(remote *testutil.FakeClient, assertion Assertion) error {
	entry, ok := remote.Entry(assertion.Day)
	switch {
	case assertion.Absent && !ok:
		return nil
	case assertion.Absent:
		return &AssertionError{
			Type:     AssertRemote,
			Expected: fmt.Sprintf("no server entry for day %d", assertion.Day),
			Actual:   entry.Metrics().String(),
		}
	case !ok:
		return &AssertionError{
			Type:     AssertRemote,
			Expected: fmt.Sprintf("server entry for day %d", assertion.Day),
			Actual:   "entry not found",
		}
	}
	if got := entry.Metrics().String(); got != assertion.Metrics {
		return &AssertionError{
			Type:     AssertRemote,
			Expected: fmt.Sprintf("day %d metrics %s", assertion.Day, assertion.Metrics),
			Actual:   fmt.Sprintf("day %d metrics %s", assertion.Day, got),
		}
	}
	return nil
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprint(*b)
}
