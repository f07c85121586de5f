package venue

import (
	"log"
	"os"
	"time"

	"acmonitorbot/pkg/session"
)

// Tracker watches the observed (track, layout, car roster) tuple and
// starts a new logical session when it changes. A change is a
// different (track, layout) pair, or a roster with zero overlap with
// the stored one: a series swapping its whole carset without moving
// track is a new venue, while partial roster overlap is treated as no
// change at all.
type Tracker struct {
	contentDir     string
	carsetsDir     string
	liveTimingPath string
	recycleInfo    bool
	store          *session.Store
}

func NewTracker(contentDir, carsetsDir, liveTimingPath string, recycleInfo bool, store *session.Store) *Tracker {
	return &Tracker{
		contentDir:     contentDir,
		carsetsDir:     carsetsDir,
		liveTimingPath: liveTimingPath,
		recycleInfo:    recycleInfo,
		store:          store,
	}
}

// Update reconciles an observation into the session record. On a venue
// change the old session is archived, session-scoped state resets (per
// the message recycle policy), the cached live timing snapshot is
// removed so stale laps cannot be misattributed, and display names and
// carset membership are loaded for the new venue.
func (vt *Tracker) Update(st *session.State, track, layout string, roster []string, now time.Time) bool {
	if !vt.isChange(st, track, layout, roster) {
		return false
	}

	if st.Venue.TrackDir != "" {
		if err := vt.store.Archive(st, now); err != nil {
			log.Printf("Error archiving session: %s", err.Error())
		}
	}

	st.ResetForNewVenue(vt.recycleInfo)

	if vt.liveTimingPath != "" {
		if err := os.Remove(vt.liveTimingPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing live timing snapshot: %s", err.Error())
		}
	}

	st.Venue.TrackDir = track
	st.Venue.Layout = layout
	st.Venue.CarRoster = append([]string{}, roster...)
	st.Venue.TrackName = vt.trackDisplayName(track, layout)
	st.Venue.CarNames = map[string]string{}
	for _, car := range roster {
		st.Venue.CarNames[car] = vt.carDisplayName(car)
	}

	carsets, err := LoadCarsets(vt.carsetsDir)
	if err != nil {
		log.Printf("Error loading carsets: %s", err.Error())
	}
	st.Venue.Carset = matchCarset(carsets, roster)

	return true
}

// isChange applies the venue change policy. Tracked state with the
// same (track, layout) and any roster overlap is not a change.
func (vt *Tracker) isChange(st *session.State, track, layout string, roster []string) bool {
	if track == "" {
		// no track observation this tick
		return false
	}
	if st.Venue.TrackDir == "" {
		// Unknown -> Tracked
		return true
	}
	if st.Venue.TrackDir != track || st.Venue.Layout != layout {
		return true
	}
	if len(roster) == 0 || len(st.Venue.CarRoster) == 0 {
		// no roster observation to compare
		return false
	}
	for _, car := range roster {
		for _, have := range st.Venue.CarRoster {
			if car == have {
				return false
			}
		}
	}
	return true
}

// matchCarset returns the name of the carset whose membership exactly
// equals the roster, or "" when none does.
func matchCarset(carsets map[string][]string, roster []string) string {
	want := map[string]bool{}
	for _, car := range roster {
		want[car] = true
	}
	for name, cars := range carsets {
		if len(cars) != len(want) {
			continue
		}
		match := true
		for _, car := range cars {
			if !want[car] {
				match = false
				break
			}
		}
		if match {
			return name
		}
	}
	return ""
}
