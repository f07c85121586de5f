package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"acmonitorbot/pkg/model"
	"acmonitorbot/pkg/session"
)

func TestDiffDetectsChanges(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	changed := tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now)
	assert.True(t, changed)
	assert.Equal(t, map[string]string{"Ann": "gt3_a"}, st.Online)

	// identical observation is not a change
	assert.False(t, tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now.Add(time.Second)))

	// same driver in a different car is a change
	assert.True(t, tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_b"}}, now.Add(2*time.Second)))
}

func TestDiffKeepsSeenRosterAcrossDisconnects(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}, {Name: "Bob", Car: "gt3_b"}}, now)
	tr.Diff(st, []model.Entrant{{Name: "Bob", Car: "gt3_b"}}, now.Add(time.Minute))

	assert.Len(t, st.SeenNameCars, 2)
	assert.Equal(t, "Ann (gt3_a)", st.SeenNameCars[0].Key)
	assert.Equal(t, "Bob (gt3_b)", st.SeenNameCars[1].Key)
}

func TestDiffSessionEndAndResume(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now)
	assert.Zero(t, st.SessionEndTime)

	tr.Diff(st, []model.Entrant{}, now.Add(time.Minute))
	assert.Equal(t, now.Add(time.Minute).Unix(), st.SessionEndTime)

	// reconnecting clears the end marker and keeps the roster
	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now.Add(2*time.Minute))
	assert.Zero(t, st.SessionEndTime)
	assert.Len(t, st.SeenNameCars, 1)
}

func TestExpireAfterTimeout(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now)
	tr.Diff(st, []model.Entrant{}, now.Add(time.Minute))

	// inside the timeout nothing expires
	assert.False(t, tr.Expire(st, now.Add(time.Minute+599*time.Second)))
	assert.Len(t, st.SeenNameCars, 1)

	assert.True(t, tr.Expire(st, now.Add(time.Minute+601*time.Second)))
	assert.Empty(t, st.SeenNameCars)
	assert.Zero(t, st.SessionEndTime)

	// expiring twice is a no-op
	assert.False(t, tr.Expire(st, now.Add(time.Hour)))
}

func TestExpireNotWhileOnline(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}}, now)
	assert.False(t, tr.Expire(st, now.Add(time.Hour)))
}

func TestRenderOnlineNumbersAndOrder(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	st.Venue.CarNames = map[string]string{"gt3_a": "GT3 Alpha"}
	order := []model.Entrant{{Name: "Bob", Car: "gt3_b"}, {Name: "Ann", Car: "gt3_a"}}
	tr.Diff(st, order, time.Unix(1000, 0))

	got := RenderOnline(st, order)
	assert.Equal(t, "1. Bob (gt3_b)\n2. Ann (GT3 Alpha)", got)
}

func TestRenderOnlineWithoutObservationOrder(t *testing.T) {
	// after a restart the persisted mapping is populated but no fresh
	// observation order exists yet; every online pair still gets a line
	st := session.NewState()
	st.Online = map[string]string{"Ann": "gt3_a", "Bob": "gt3_b"}
	st.TouchSeen("Bob (gt3_b)", 100)
	st.TouchSeen("Ann (gt3_a)", 200)

	got := RenderOnline(st, nil)
	assert.Equal(t, "1. Bob (gt3_b)\n2. Ann (gt3_a)", got)
}

func TestRenderOnlinePartialOrderFallsBack(t *testing.T) {
	st := session.NewState()
	st.Online = map[string]string{"Ann": "gt3_a", "Bob": "gt3_b", "Cid": "gt3_c"}
	st.TouchSeen("Bob (gt3_b)", 100)

	// order covers only Ann; Bob comes from the seen roster, Cid by name
	got := RenderOnline(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}})
	assert.Equal(t, "1. Ann (gt3_a)\n2. Bob (gt3_b)\n3. Cid (gt3_c)", got)
}

func TestRenderPreviouslySkipsOnline(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}, {Name: "Bob", Car: "gt3_b"}}, now)
	tr.Diff(st, []model.Entrant{{Name: "Bob", Car: "gt3_b"}}, now.Add(time.Minute))

	assert.Equal(t, "Ann (gt3_a)", RenderPreviously(st))
}

func TestRenderSummary(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	now := time.Unix(1000, 0)

	tr.Diff(st, []model.Entrant{{Name: "Ann", Car: "gt3_a"}, {Name: "Bob", Car: "gt3_b"}}, now)
	tr.Diff(st, []model.Entrant{}, now.Add(time.Minute))

	got := RenderSummary(st)
	assert.Equal(t, "Session complete, 2 participant(s):\n1. Ann (gt3_a)\n2. Bob (gt3_b)", got)
}

func TestRenderEscapesNames(t *testing.T) {
	tr := NewTracker(600 * time.Second)
	st := session.NewState()
	order := []model.Entrant{{Name: "A*n_n", Car: "gt3_a"}}
	tr.Diff(st, order, time.Unix(1000, 0))

	assert.Equal(t, "1. A\\*n\\_n (gt3_a)", RenderOnline(st, order))
}
