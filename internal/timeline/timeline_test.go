package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/prefs"
	"github.com/roach88/fitsync/internal/testutil"
)

func TestTimeline_StartDateRoundTrip(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	p := openPrefs(t)
	tl := New(p, testutil.NewClock(now), est)

	_, ok, err := tl.StartDate()
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2026, 3, 1, 23, 0, 0, 0, est)
	require.NoError(t, tl.SetStartDate(start))

	got, ok, err := tl.StartDate()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, start.Equal(got))
	assert.Equal(t, est, got.Location())

	raw, err := p.Get(prefs.StartDateKey)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T23:00:00-05:00", raw)
}

func TestTimeline_CorruptStartDate(t *testing.T) {
	p := openPrefs(t)
	require.NoError(t, p.Set(prefs.StartDateKey, "yesterday"))
	tl := New(p, testutil.NewClock(now), time.UTC)

	_, _, err := tl.StartDate()
	assert.Error(t, err)

	_, ok := tl.CurrentDay()
	assert.False(t, ok)
}

func TestTimeline_CurrentDay(t *testing.T) {
	clock := testutil.NewClock(now)
	tl := New(openPrefs(t), clock, time.UTC)

	_, ok := tl.CurrentDay()
	assert.False(t, ok)

	require.NoError(t, tl.SetStartDate(now.Add(-days(4))))
	day, ok := tl.CurrentDay()
	require.True(t, ok)
	assert.Equal(t, 5, day)

	clock.Advance(days(1))
	day, _ = tl.CurrentDay()
	assert.Equal(t, 6, day)
}

func TestTimeline_MaxReadDayAndClear(t *testing.T) {
	tl := New(openPrefs(t), testutil.NewClock(now), time.UTC)

	require.NoError(t, tl.SetMaxReadDay(42))
	require.NoError(t, tl.SetStartDate(now))
	day, ok, err := tl.MaxReadDay()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, day)

	require.NoError(t, tl.Clear())
	_, ok, err = tl.MaxReadDay()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = tl.StartDate()
	require.NoError(t, err)
	assert.False(t, ok)
}
