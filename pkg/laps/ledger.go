package laps

import (
	"acmonitorbot/pkg/helper"
	"acmonitorbot/pkg/session"
)

// minLapTimeMs guards against sensor glitches: anything below this is
// not a lap a car can drive.
const minLapTimeMs = 100

// Record ingests one lap-completion fact and reports whether the
// stored record changed. The record is replaced when none exists, when
// the time is strictly better, or when the upstream lap counter moved
// while the engine was not looking. The last case deliberately lets a
// worse time overwrite a stale best, because the source is polled, not
// pushed.
func Record(st *session.State, driver, car string, timeMs float64, cuts, lapCount int) bool {
	if timeMs < minLapTimeMs {
		return false
	}

	byCar, ok := st.Laps[driver]
	if !ok {
		byCar = map[string]session.LapRecord{}
		st.Laps[driver] = byCar
	}

	prev, exists := byCar[car]
	if exists && timeMs >= prev.TimeMs && lapCount == prev.LapCount {
		return false
	}

	byCar[car] = session.LapRecord{
		Formatted: helper.FormatLapTime(timeMs),
		TimeMs:    timeMs,
		Cuts:      cuts,
		LapCount:  lapCount,
		TrackDir:  st.Venue.TrackDir,
		Layout:    st.Venue.Layout,
	}
	return true
}
