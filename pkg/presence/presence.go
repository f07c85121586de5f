package presence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"acmonitorbot/pkg/helper"
	"acmonitorbot/pkg/model"
	"acmonitorbot/pkg/session"
)

// Tracker diffs presence snapshots against the session record and
// decides when a finished session's roster may be dropped.
type Tracker struct {
	onlineTimeout time.Duration
}

func NewTracker(onlineTimeout time.Duration) *Tracker {
	return &Tracker{onlineTimeout: onlineTimeout}
}

// Diff replaces the online mapping with the freshly observed entrants
// when the two differ and stamps every online name into the seen
// roster. When the roster empties the session end time is set; it is
// cleared again as soon as somebody reconnects.
func (t *Tracker) Diff(st *session.State, current []model.Entrant, now time.Time) bool {
	next := map[string]string{}
	for _, e := range current {
		next[e.Name] = e.Car
	}

	changed := len(next) != len(st.Online)
	if !changed {
		for name, car := range next {
			if st.Online[name] != car {
				changed = true
				break
			}
		}
	}

	for _, e := range current {
		st.TouchSeen(seenKey(e.Name, e.Car), now.Unix())
	}

	if !changed {
		return false
	}

	wasOnline := len(st.Online) > 0
	st.Online = next

	if len(next) == 0 && wasOnline {
		st.SessionEndTime = now.Unix()
	}
	if len(next) > 0 {
		st.SessionEndTime = 0
	}
	return true
}

// Expire drops the seen roster once the session has been over for
// longer than the online timeout with nobody reconnecting. The caller
// releases the online message slot when this reports a change.
func (t *Tracker) Expire(st *session.State, now time.Time) bool {
	if st.SessionEndTime == 0 || len(st.Online) > 0 {
		return false
	}
	if now.Sub(time.Unix(st.SessionEndTime, 0)) <= t.onlineTimeout {
		return false
	}
	st.SeenNameCars = []session.SeenEntry{}
	st.SessionEndTime = 0
	return true
}

// RenderOnline renders the numbered online roster, one line per
// (name, car) pair in observation order. Entries the order slice does
// not cover (after a restart the persisted mapping outlives the
// in-memory observation order) are appended from the seen roster's
// insertion order, then by name, so every online pair always gets a
// line.
func RenderOnline(st *session.State, order []model.Entrant) string {
	lines := []string{}
	rendered := map[string]bool{}
	for _, e := range order {
		if st.Online[e.Name] != e.Car || rendered[e.Name] {
			continue
		}
		rendered[e.Name] = true
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", len(lines)+1, helper.EscapeMarkup(e.Name), st.CarName(e.Car)))
	}
	if len(rendered) < len(st.Online) {
		for _, s := range st.SeenNameCars {
			name, car, ok := splitSeenKey(s.Key)
			if !ok || rendered[name] || st.Online[name] != car {
				continue
			}
			rendered[name] = true
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", len(lines)+1, helper.EscapeMarkup(name), st.CarName(car)))
		}
		names := []string{}
		for name := range st.Online {
			if !rendered[name] {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", len(lines)+1, helper.EscapeMarkup(name), st.CarName(st.Online[name])))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderPreviously lists seen roster entries that are not currently
// online, in insertion order.
func RenderPreviously(st *session.State) string {
	online := map[string]bool{}
	for name, car := range st.Online {
		online[seenKey(name, car)] = true
	}
	lines := []string{}
	for _, e := range st.SeenNameCars {
		if online[e.Key] {
			continue
		}
		lines = append(lines, escapeSeenKey(e.Key, st))
	}
	return strings.Join(lines, "\n")
}

// RenderSummary renders the end-of-session participant list: the full
// seen roster, numbered, with the participant count equal to the
// number of roster entries.
func RenderSummary(st *session.State) string {
	lines := []string{fmt.Sprintf("Session complete, %d participant(s):", len(st.SeenNameCars))}
	for i, e := range st.SeenNameCars {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, escapeSeenKey(e.Key, st)))
	}
	return strings.Join(lines, "\n")
}

func seenKey(name, car string) string {
	return fmt.Sprintf("%s (%s)", name, car)
}

// splitSeenKey is the inverse of seenKey.
func splitSeenKey(key string) (string, string, bool) {
	open := strings.LastIndex(key, " (")
	if open < 0 || !strings.HasSuffix(key, ")") {
		return "", "", false
	}
	return key[:open], key[open+2 : len(key)-1], true
}

// escapeSeenKey rewrites the stored "name (car)" key with the escaped
// name and the display name of the car.
func escapeSeenKey(key string, st *session.State) string {
	name, car, ok := splitSeenKey(key)
	if !ok {
		return helper.EscapeMarkup(key)
	}
	return fmt.Sprintf("%s (%s)", helper.EscapeMarkup(name), st.CarName(car))
}
