package servers

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"acmonitorbot/pkg/model"
)

// failureCooldown keeps a broken timing source from being hammered on
// every tick.
const failureCooldown = 10 * time.Minute

// TimingSource produces live timing snapshots. The cooldown-after-
// failure policy belongs to the source, not its caller: Fetch simply
// reports "nothing right now" while cooling down.
type TimingSource interface {
	Fetch() (model.TimingSnapshot, bool)
}

// NewTimingSource picks an implementation from the configured source
// string: ws:// and wss:// get the websocket reader, anything else is
// treated as a snapshot file path. Empty disables live timing.
func NewTimingSource(source string) TimingSource {
	if source == "" {
		return nil
	}
	if strings.HasPrefix(source, "ws://") || strings.HasPrefix(source, "wss://") {
		return newSocketTiming(source)
	}
	return &fileTiming{path: source, now: time.Now}
}

// fileTiming reads the externally rewritten live timing JSON document.
type fileTiming struct {
	path          string
	cooldownUntil time.Time
	now           func() time.Time
}

func (f *fileTiming) Fetch() (model.TimingSnapshot, bool) {
	if f.now().Before(f.cooldownUntil) {
		return nil, false
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading live timing snapshot: %s", err.Error())
		}
		f.cooldownUntil = f.now().Add(failureCooldown)
		return nil, false
	}

	var snapshot model.TimingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("Error parsing live timing snapshot: %s", err.Error())
		f.cooldownUntil = f.now().Add(failureCooldown)
		return nil, false
	}
	return snapshot, true
}
