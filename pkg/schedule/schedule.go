package schedule

import "time"

// slack added to the qualifying end before the recurrence rolls over
// to the following week.
const rolloverSlack = 30 * time.Minute

// AutoWeek advances a recurring qualifying start by whole weeks until
// the session (plus slack) lies in the future. A week is added as
// exactly 7*24h, then the local hour of day is checked against the
// original: a daylight-saving shift is corrected by trying ±1 hour and
// keeping whichever restores the original hour. When neither does, the
// unshifted result stands.
func AutoWeek(t0 time.Time, dur time.Duration, now time.Time) time.Time {
	t := t0
	for !t.Add(dur + rolloverSlack).After(now) {
		t = addWeek(t, t0.Hour())
	}
	return t
}

func addWeek(t time.Time, wantHour int) time.Time {
	next := t.Add(7 * 24 * time.Hour)
	if next.Hour() == wantHour {
		return next
	}
	if plus := next.Add(time.Hour); plus.Hour() == wantHour {
		return plus
	}
	if minus := next.Add(-time.Hour); minus.Hour() == wantHour {
		return minus
	}
	return next
}

// Scheduler computes the one-hour-warning and qualifying windows and
// keeps the per-window "done" flags so the external hooks fire exactly
// once per window entry.
type Scheduler struct {
	dur          time.Duration
	oneHourFired bool
	qualFired    bool
}

func NewScheduler(qualifyMinutes int) *Scheduler {
	return &Scheduler{dur: time.Duration(qualifyMinutes) * time.Minute}
}

// Duration returns the configured qualifying duration.
func (s *Scheduler) Duration() time.Duration {
	return s.dur
}

// Events reports the window states for one tick. The Entered flags are
// set on the tick a window is entered and never again until the window
// has been exited.
type Events struct {
	OneHourActive  bool
	OneHourEntered bool
	QualActive     bool
	QualEntered    bool
}

// Check evaluates both windows against the qualifying start timestamp.
// A zero start disables everything and resets the flags.
func (s *Scheduler) Check(qualStart, now time.Time) Events {
	var ev Events
	if qualStart.IsZero() {
		s.oneHourFired = false
		s.qualFired = false
		return ev
	}

	ev.OneHourActive = now.After(qualStart.Add(-time.Hour)) && now.Before(qualStart)
	ev.QualActive = now.After(qualStart) && now.Before(qualStart.Add(s.dur))

	if ev.OneHourActive && !s.oneHourFired {
		s.oneHourFired = true
		ev.OneHourEntered = true
	}
	if !ev.OneHourActive {
		s.oneHourFired = false
	}
	if ev.QualActive && !s.qualFired {
		s.qualFired = true
		ev.QualEntered = true
	}
	if !ev.QualActive {
		s.qualFired = false
	}
	return ev
}
