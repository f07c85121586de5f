package laps

import (
	"fmt"
	"sort"
	"strings"

	"acmonitorbot/pkg/helper"
	"acmonitorbot/pkg/session"
)

// UncategorizedName buckets cars that belong to no named carset.
const UncategorizedName = "Uncategorized"

type entry struct {
	driver string
	car    string
	rec    session.LapRecord
}

// Leaderboard renders the per-carset leaderboard. A car may belong to
// several carsets; each driver keeps only their single best entry per
// carset. Carsets sort alphabetically, except the venue's own carset
// is pinned first and Uncategorized always comes last. The rendered
// text never exceeds the character budget; dropped lines leave a
// trailing "..." marker.
func Leaderboard(st *session.State, carsets map[string][]string, topN, budget int) string {
	byCategory := map[string][]entry{}

	membership := map[string][]string{}
	for name, cars := range carsets {
		for _, car := range cars {
			membership[car] = append(membership[car], name)
		}
	}

	for driver, byCar := range st.Laps {
		// best per category for this driver
		best := map[string]entry{}
		for car, rec := range byCar {
			cats := membership[car]
			if len(cats) == 0 {
				cats = []string{UncategorizedName}
			}
			for _, cat := range cats {
				if cur, ok := best[cat]; !ok || rec.TimeMs < cur.rec.TimeMs {
					best[cat] = entry{driver: driver, car: car, rec: rec}
				}
			}
		}
		for cat, e := range best {
			byCategory[cat] = append(byCategory[cat], e)
		}
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return categoryLess(names[i], names[j], st.Venue.Carset)
	})

	lines := []string{}
	for _, name := range names {
		entries := byCategory[name]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].rec.TimeMs < entries[j].rec.TimeMs
		})
		if len(entries) > topN {
			entries = entries[:topN]
		}
		lines = append(lines, fmt.Sprintf("*%s*", name))
		for i, e := range entries {
			lines = append(lines, fmt.Sprintf("%d. %s %s (%s)", i+1, e.rec.Formatted, helper.EscapeMarkup(e.driver), st.CarName(e.car)))
		}
	}

	return helper.FitLines(lines, budget)
}

// categoryLess orders carset names: the venue carset first,
// Uncategorized last, everything else alphabetical.
func categoryLess(a, b, venueCarset string) bool {
	switch {
	case a == b:
		return false
	case a == venueCarset:
		return true
	case b == venueCarset:
		return false
	case a == UncategorizedName:
		return false
	case b == UncategorizedName:
		return true
	}
	return strings.Compare(a, b) < 0
}
