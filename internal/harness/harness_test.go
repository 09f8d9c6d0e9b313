package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every scenario under testdata/scenarios passes its assertions and matches
// its golden trace. Regenerate with: go test ./internal/harness -update
func TestRun_PackageScenariosGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
		})
	}
}

func TestRun_PhotoSwapCalls(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/photo_swap_in_one_pass.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Passes, 1)
	pass := result.Passes[0]
	assert.Equal(t, int64(1), pass.Number)
	assert.Equal(t, []string{
		"delete_photo day=1 slot=front",
		"update_progress day=1 uploads=photo_back",
		"get_progress",
	}, pass.Calls)
	assert.Empty(t, pass.Failures)
	assert.Len(t, pass.Records, 1)
}

func TestRun_FailedAssertionMarksResult(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectation
description: "expects a record the pass never creates"
assertions:
  - type: record
    day: 5
    expect: { synced: true }
  - type: call_count
    op: get_progress
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "record for day 5")
	assert.Contains(t, result.Errors[0], "record not found")
}

func TestRun_PerPassFailuresAreRearmed(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: offline_then_online
description: "upload fails in pass 1 only"
records:
  - id: r1
    day: 2
    last_modified: "2026-03-09T08:00:00Z"
    metrics: { squats: 30 }
passes:
  - { fail: [create_progress] }
  - { advance: 30m }
assertions:
  - type: failures
    pass: 1
    codes: [UPLOAD]
  - type: failures
    pass: 2
    codes: []
  - type: call_count
    op: create_progress
    count: 2
  - type: remote
    day: 2
    metrics: "pullups=- pushups=- squats=30 weight=-"
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion errors: %v", result.Errors)

	require.Len(t, result.Passes, 2)
	assert.Equal(t, []string{"day=2 synced=false should_delete=false server_known=false pullups=- pushups=- squats=30 weight=- front=empty back=empty side=empty"},
		result.Passes[0].Records)
	assert.Equal(t, "pass 2 uploaded=1 overwritten=1", result.Passes[1].Report)
}

func TestRun_SameScenarioSameTrace(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/idempotent_second_pass.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, string(first.Trace()), string(second.Trace()))
}

func TestResult_Trace(t *testing.T) {
	result := NewResult("demo")
	result.Passes = append(result.Passes, PassTrace{
		Number:   1,
		Calls:    []string{"get_progress"},
		Report:   "pass 1 merge skipped failures=1",
		Failures: []string{"FETCH_REMOTE: boom"},
		Codes:    []string{"FETCH_REMOTE"},
		Records:  []string{},
	})

	want := strings.Join([]string{
		"scenario: demo",
		"pass 1",
		"  get_progress",
		"  report: pass 1 merge skipped failures=1",
		"  failure: FETCH_REMOTE: boom",
		"  records: 0",
		"",
	}, "\n")
	assert.Equal(t, want, string(result.Trace()))
	assert.Equal(t, []string{"get_progress"}, result.Calls())
}

func TestResult_AddError(t *testing.T) {
	result := NewResult("demo")
	assert.True(t, result.Pass)

	result.AddError("nope")

	assert.False(t, result.Pass)
	assert.Equal(t, []string{"nope"}, result.Errors)
}
