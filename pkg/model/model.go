package model

import (
	"encoding/json"
	"fmt"
)

const (
	PubSubAlertsTopic = "alerts"

	AlertServerUp   = "up"
	AlertServerDown = "down"
	AlertOneHour    = "onehour"
	AlertQualifying = "qualifying"
)

// Entrant is one (driver, car) pair observed on the server.
type Entrant struct {
	Name string `json:"name"`
	Car  string `json:"car"`
}

// Player is a slot from the server details endpoint.
type Player struct {
	Name      string `json:"DriverName"`
	Model     string `json:"Model"`
	Connected bool   `json:"IsConnected"`
}

// ServerDetails is the reconciled view of the server status API: what
// is being driven, where, and by whom.
type ServerDetails struct {
	ServerName  string   `json:"serverName"`
	Track       string   `json:"track"`
	TrackLayout string   `json:"trackLayout"`
	Cars        []string `json:"cars"`
	Players     []Player `json:"players"`
}

// Entrants returns the connected (name, car) pairs in slot order.
func (d ServerDetails) Entrants() []Entrant {
	entrants := []Entrant{}
	for _, p := range d.Players {
		if !p.Connected || p.Name == "" {
			continue
		}
		entrants = append(entrants, Entrant{Name: p.Name, Car: p.Model})
	}
	return entrants
}

// CarTiming is one car's counters inside a live timing snapshot.
type CarTiming struct {
	BestLapNs int64 `json:"bestLap"`
	LapCount  int   `json:"numLaps"`
}

// DriverTiming is one driver's per-car timing, keyed by car directory.
type DriverTiming struct {
	Name string               `json:"name"`
	Cars map[string]CarTiming `json:"cars"`
}

// TimingSnapshot is an externally produced live timing document keyed
// by driver GUID.
type TimingSnapshot map[string]DriverTiming

// AlertEvent travels over the pubsub alerts topic from the monitor to
// the notification fan-out.
type AlertEvent struct {
	Kind      string `json:"kind"`
	Venue     string `json:"venue"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (e AlertEvent) String() string {
	return fmt.Sprintf("  ▸ Venue: %s\n  ▸ %s", e.Venue, e.Text)
}

// Encode serializes the event into the string form carried on pubsub
// channels.
func (e AlertEvent) Encode() (string, error) {
	data, err := json.Marshal(e)
	return string(data), err
}

// DecodeAlert is the inverse of Encode.
func DecodeAlert(payload string) (AlertEvent, error) {
	var e AlertEvent
	err := json.Unmarshal([]byte(payload), &e)
	return e, err
}
