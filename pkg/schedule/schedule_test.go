package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoWeekInFutureUnchanged(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, t0, AutoWeek(t0, time.Hour, now))
}

func TestAutoWeekAdvancesWholeWeeks(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	now := t0.Add(16 * 24 * time.Hour)
	got := AutoWeek(t0, time.Hour, now)
	assert.Equal(t, t0.Add(3*7*24*time.Hour), got)
	assert.True(t, got.Add(time.Hour+rolloverSlack).After(now))
}

func TestAutoWeekRolloverSlack(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	dur := time.Hour

	// qualifying ended 10 minutes ago: still within slack, no rollover
	now := t0.Add(dur + 10*time.Minute)
	assert.Equal(t, t0, AutoWeek(t0, dur, now))

	// past the slack the next week takes over
	now = t0.Add(dur + rolloverSlack + time.Minute)
	assert.Equal(t, t0.Add(7*24*time.Hour), AutoWeek(t0, dur, now))
}

func TestAutoWeekKeepsLocalHourAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// the last Sunday before the spring-forward transition (2026-03-29)
	t0 := time.Date(2026, 3, 25, 20, 0, 0, 0, loc)
	now := t0.Add(8 * 24 * time.Hour)
	got := AutoWeek(t0, time.Hour, now)
	assert.Equal(t, 20, got.Hour(), "local start hour must survive the DST shift")

	// and back across fall-back (2026-10-25)
	t1 := time.Date(2026, 10, 21, 20, 0, 0, 0, loc)
	now = t1.Add(8 * 24 * time.Hour)
	got = AutoWeek(t1, time.Hour, now)
	assert.Equal(t, 20, got.Hour())
}

func TestSchedulerWindows(t *testing.T) {
	s := NewScheduler(60)
	qual := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	// well before the one hour window
	ev := s.Check(qual, qual.Add(-2*time.Hour))
	assert.False(t, ev.OneHourActive)
	assert.False(t, ev.QualActive)

	// entering the one hour window fires Entered exactly once
	ev = s.Check(qual, qual.Add(-30*time.Minute))
	assert.True(t, ev.OneHourActive)
	assert.True(t, ev.OneHourEntered)
	ev = s.Check(qual, qual.Add(-29*time.Minute))
	assert.True(t, ev.OneHourActive)
	assert.False(t, ev.OneHourEntered)

	// inside qualifying
	ev = s.Check(qual, qual.Add(10*time.Minute))
	assert.False(t, ev.OneHourActive)
	assert.True(t, ev.QualActive)
	assert.True(t, ev.QualEntered)
	ev = s.Check(qual, qual.Add(11*time.Minute))
	assert.True(t, ev.QualActive)
	assert.False(t, ev.QualEntered)

	// after qualifying everything is inactive and flags reset
	ev = s.Check(qual, qual.Add(2*time.Hour))
	assert.False(t, ev.QualActive)
	ev = s.Check(qual, qual.Add(30*time.Minute))
	assert.True(t, ev.QualEntered, "re-entering a window fires again after an exit")
}

func TestSchedulerZeroStartResets(t *testing.T) {
	s := NewScheduler(60)
	qual := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	ev := s.Check(qual, qual.Add(-30*time.Minute))
	assert.True(t, ev.OneHourEntered)

	ev = s.Check(time.Time{}, qual.Add(-29*time.Minute))
	assert.False(t, ev.OneHourActive)

	// the flag was reset, so the next entry fires again
	ev = s.Check(qual, qual.Add(-28*time.Minute))
	assert.True(t, ev.OneHourEntered)
}
