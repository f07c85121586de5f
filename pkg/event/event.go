package event

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"acmonitorbot/pkg/session"
)

// Descriptor is what the monitor extracts from the external race/event
// document, whichever of the two supported shapes it came in.
type Descriptor struct {
	Scheduled      time.Time
	QualifyMinutes int
	Slots          int
	Entrants       map[string]session.Registrant // keyed by GUID
}

// championship is the nested multi-event shape.
type championship struct {
	Events []struct {
		Scheduled time.Time `json:"Scheduled"`
		RaceSetup struct {
			Sessions map[string]struct {
				Time int `json:"Time"`
			} `json:"Sessions"`
		} `json:"RaceSetup"`
	} `json:"Events"`
	EntryList  map[string]entrant `json:"EntryList"`
	SignUpForm struct {
		Responses []struct {
			GUID   string `json:"GUID"`
			Name   string `json:"Name"`
			Car    string `json:"Car"`
			Status string `json:"Status"`
		} `json:"Responses"`
	} `json:"SignUpForm"`
}

// customRace is the flat single-event shape.
type customRace struct {
	Scheduled time.Time `json:"Scheduled"`
	RaceConfig struct {
		QualifyingTime int `json:"QualifyingTime"`
		MaxClients     int `json:"MaxClients"`
	} `json:"RaceConfig"`
	EntryList map[string]entrant `json:"EntryList"`
}

type entrant struct {
	GUID  string `json:"GUID"`
	Name  string `json:"Name"`
	Model string `json:"Model"`
}

// Load reads and parses the descriptor document. A missing file is
// reported as (nil, nil): the feature is simply off for this tick.
func Load(path string) (*Descriptor, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading event descriptor")
	}
	return Parse(data)
}

// Parse tries the championship shape first and falls back to the flat
// custom race shape.
func Parse(data []byte) (*Descriptor, error) {
	var champ championship
	if err := json.Unmarshal(data, &champ); err == nil && len(champ.Events) > 0 {
		return fromChampionship(champ), nil
	}

	var race customRace
	if err := json.Unmarshal(data, &race); err != nil {
		return nil, errors.Wrap(err, "parsing event descriptor")
	}
	return fromCustomRace(race), nil
}

func fromChampionship(champ championship) *Descriptor {
	d := &Descriptor{Entrants: map[string]session.Registrant{}}

	ev := champ.Events[0]
	d.Scheduled = ev.Scheduled
	if q, ok := ev.RaceSetup.Sessions["QUALIFY"]; ok {
		d.QualifyMinutes = q.Time
	}
	d.Slots = len(champ.EntryList)

	// structured sign-up responses win over the raw entry list
	if len(champ.SignUpForm.Responses) > 0 {
		for _, r := range champ.SignUpForm.Responses {
			if r.Status != "" && r.Status != "Accepted" {
				continue
			}
			if r.GUID == "" {
				continue
			}
			d.Entrants[r.GUID] = session.Registrant{Name: r.Name, Car: r.Car}
		}
		return d
	}

	for _, e := range champ.EntryList {
		if e.GUID == "" || e.Name == "" {
			continue
		}
		d.Entrants[e.GUID] = session.Registrant{Name: e.Name, Car: e.Model}
	}
	return d
}

func fromCustomRace(race customRace) *Descriptor {
	d := &Descriptor{
		Scheduled:      race.Scheduled,
		QualifyMinutes: race.RaceConfig.QualifyingTime,
		Slots:          race.RaceConfig.MaxClients,
		Entrants:       map[string]session.Registrant{},
	}
	if d.Slots == 0 {
		d.Slots = len(race.EntryList)
	}
	for _, e := range race.EntryList {
		if e.GUID == "" || e.Name == "" {
			continue
		}
		d.Entrants[e.GUID] = session.Registrant{Name: e.Name, Car: e.Model}
	}
	return d
}
