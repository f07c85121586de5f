package venue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acmonitorbot/pkg/session"
)

func newTestTracker(t *testing.T, recycleInfo bool) (*Tracker, string) {
	t.Helper()
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "state.json"), filepath.Join(dir, "archive"), 0)
	return NewTracker(filepath.Join(dir, "content"), filepath.Join(dir, "carsets"), "", recycleInfo, store), dir
}

func TestUpdateFirstObservation(t *testing.T) {
	vt, _ := newTestTracker(t, false)
	st := session.NewState()

	changed := vt.Update(st, "monza", "gp", []string{"gt3_a", "gt3_b"}, time.Unix(1000, 0))
	assert.True(t, changed)
	assert.Equal(t, "monza", st.Venue.TrackDir)
	assert.Equal(t, "gp", st.Venue.Layout)
	assert.Equal(t, []string{"gt3_a", "gt3_b"}, st.Venue.CarRoster)
	// no content metadata: display name falls back to the directory
	assert.Equal(t, "monza", st.Venue.TrackName)
}

func TestUpdateSameVenueNoChange(t *testing.T) {
	vt, _ := newTestTracker(t, false)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a", "gt3_b"}, time.Unix(1000, 0))

	assert.False(t, vt.Update(st, "monza", "gp", []string{"gt3_a", "gt3_b"}, time.Unix(2000, 0)))
}

func TestUpdateTrackChange(t *testing.T) {
	vt, _ := newTestTracker(t, false)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a"}, time.Unix(1000, 0))
	st.Laps["Ann"] = map[string]session.LapRecord{"gt3_a": {TimeMs: 92500}}

	assert.True(t, vt.Update(st, "spa", "", []string{"gt3_a"}, time.Unix(2000, 0)))
	assert.Equal(t, "spa", st.Venue.TrackDir)
	assert.Empty(t, st.Laps, "laps reset with the venue")
}

func TestUpdateRosterOverlapPolicy(t *testing.T) {
	vt, _ := newTestTracker(t, false)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a", "gt3_b"}, time.Unix(1000, 0))

	// partial overlap is not a venue change
	assert.False(t, vt.Update(st, "monza", "gp", []string{"gt3_b", "gt4_x"}, time.Unix(2000, 0)))
	assert.Equal(t, []string{"gt3_a", "gt3_b"}, st.Venue.CarRoster)

	// zero overlap means a whole new carset: new venue
	assert.True(t, vt.Update(st, "monza", "gp", []string{"gt4_x", "gt4_y"}, time.Unix(3000, 0)))
	assert.Equal(t, []string{"gt4_x", "gt4_y"}, st.Venue.CarRoster)
}

func TestUpdateEmptyTrackNoChange(t *testing.T) {
	vt, _ := newTestTracker(t, false)

	// an empty status report while still untracked must not reset
	// anything, tick after tick
	st := session.NewState()
	assert.False(t, vt.Update(st, "", "", nil, time.Unix(1000, 0)))
	assert.False(t, vt.Update(st, "", "", nil, time.Unix(2000, 0)))
	assert.Equal(t, "", st.Venue.TrackDir)

	// nor once tracked
	vt.Update(st, "monza", "gp", []string{"gt3_a"}, time.Unix(3000, 0))
	st.Laps["Ann"] = map[string]session.LapRecord{"gt3_a": {TimeMs: 92500}}
	assert.False(t, vt.Update(st, "", "", nil, time.Unix(4000, 0)))
	assert.Equal(t, "monza", st.Venue.TrackDir)
	assert.Len(t, st.Laps, 1)
}

func TestUpdateEmptyRosterNoChange(t *testing.T) {
	vt, _ := newTestTracker(t, false)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a"}, time.Unix(1000, 0))

	assert.False(t, vt.Update(st, "monza", "gp", []string{}, time.Unix(2000, 0)))
}

func TestUpdateArchivesOldSession(t *testing.T) {
	vt, dir := newTestTracker(t, false)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a"}, time.Unix(1000, 0))

	vt.Update(st, "spa", "", []string{"gt3_a"}, time.Unix(2000, 0))

	_, err := os.Stat(filepath.Join(dir, "archive", "2000-monza.json"))
	assert.NoError(t, err, "old session must be archived before the reset")
}

func TestUpdateRecycleInfoMessage(t *testing.T) {
	vt, _ := newTestTracker(t, true)
	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_a"}, time.Unix(1000, 0))
	st.InfoMessageID = 42

	vt.Update(st, "spa", "", []string{"gt3_a"}, time.Unix(2000, 0))
	assert.Equal(t, 42, st.InfoMessageID)
}

func TestUpdateMatchesCarset(t *testing.T) {
	vt, dir := newTestTracker(t, false)
	carsetsDir := filepath.Join(dir, "carsets")
	require.NoError(t, os.MkdirAll(carsetsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(carsetsDir, "GT3.txt"), []byte("gt3_a\ngt3_b\n; comment\n"), 0644))

	st := session.NewState()
	vt.Update(st, "monza", "gp", []string{"gt3_b", "gt3_a"}, time.Unix(1000, 0))
	assert.Equal(t, "GT3", st.Venue.Carset)

	// a superset roster matches nothing
	st2 := session.NewState()
	vt.Update(st2, "monza", "gp", []string{"gt3_a", "gt3_b", "gt4_x"}, time.Unix(1000, 0))
	assert.Equal(t, "", st2.Venue.Carset)
}

func TestLoadCarsets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "GT3.txt"), []byte("gt3_a\n\n; note\ngt3_b\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("; only comments\n"), 0644))

	carsets, err := LoadCarsets(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"GT3": {"gt3_a", "gt3_b"}}, carsets)
}

func TestLoadCarsetsMissingDir(t *testing.T) {
	carsets, err := LoadCarsets(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, carsets)
}
