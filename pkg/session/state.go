package session

// State is the durable session record. The poll loop is its only
// writer; it is persisted after every tick that produced an externally
// observable change and reloaded on startup, so the message IDs below
// keep two process lifetimes inside the same conversation.
type State struct {
	// Online maps driver name to the car directory they are driving.
	Online map[string]string `json:"online"`
	// SeenNameCars lists "name (car)" keys with last-seen timestamps,
	// in insertion order. Survives disconnects until the session ends.
	SeenNameCars []SeenEntry `json:"seenNameCars"`
	// Laps maps driver name -> car directory -> best lap record.
	Laps map[string]map[string]LapRecord `json:"laps"`

	Venue        Venue                 `json:"venue"`
	Registration map[string]Registrant `json:"registration"`
	Schedule     Schedule              `json:"schedule"`

	OnlineMessageID     int `json:"onlineMessageId"`
	InfoMessageID       int `json:"infoMessageId"`
	OneHourMessageID    int `json:"oneHourMessageId"`
	QualifyingMessageID int `json:"qualifyingMessageId"`
	DownMessageID       int `json:"downMessageId"`

	ServerIsUp     bool  `json:"serverIsUp"`
	SessionEndTime int64 `json:"sessionEndTime"` // unix seconds, 0 = unset
}

// SeenEntry is one "name (car)" roster line with its last-seen time.
type SeenEntry struct {
	Key      string `json:"key"`
	LastSeen int64  `json:"lastSeen"`
}

// LapRecord is the best valid lap stored for one (driver, car) pair.
// TimeMs keeps sub-millisecond precision for tie-breaking. LapCount
// mirrors the upstream lap counter: when it advances without a better
// time having been seen, the record is overwritten anyway so that a
// polled source cannot leave a stale best behind.
type LapRecord struct {
	Formatted string  `json:"formattedTime"`
	TimeMs    float64 `json:"timeMilliseconds"`
	Cuts      int     `json:"cutCount"`
	LapCount  int     `json:"lapCount"`
	TrackDir  string  `json:"trackDirectory"`
	Layout    string  `json:"layout"`
}

// Venue identifies the racing context: track, layout and car roster.
type Venue struct {
	TrackDir  string   `json:"trackDirectory"`
	TrackName string   `json:"trackDisplayName"`
	Layout    string   `json:"layout"`
	Carset    string   `json:"carset"`
	CarRoster []string `json:"carRoster"`
	// CarNames maps car directory to display name, loaded from content
	// metadata when the venue changes.
	CarNames map[string]string `json:"carNames"`
}

// Registrant is one entry from the external event descriptor.
// Registration is monotonic: the monitor only ever adds entries.
type Registrant struct {
	Name string `json:"name"`
	Car  string `json:"car"`
}

// Schedule mirrors the scheduling facts extracted from config or the
// event descriptor.
type Schedule struct {
	QualifyTimestamp int64 `json:"qualifyTimestamp"`
	RaceTimestamp    int64 `json:"raceTimestamp"`
	NumberSlots      int   `json:"numberSlots"`
	NumberRegistered int   `json:"numberRegistered"`
}

// NewState returns a fresh default state with initialized containers.
func NewState() *State {
	return &State{
		Online:       map[string]string{},
		SeenNameCars: []SeenEntry{},
		Laps:         map[string]map[string]LapRecord{},
		Registration: map[string]Registrant{},
		Venue:        Venue{CarRoster: []string{}, CarNames: map[string]string{}},
	}
}

// normalize re-initializes any containers a partially populated JSON
// document left nil, so loaded state behaves like a fresh one.
func (st *State) normalize() {
	if st.Online == nil {
		st.Online = map[string]string{}
	}
	if st.SeenNameCars == nil {
		st.SeenNameCars = []SeenEntry{}
	}
	if st.Laps == nil {
		st.Laps = map[string]map[string]LapRecord{}
	}
	if st.Registration == nil {
		st.Registration = map[string]Registrant{}
	}
	if st.Venue.CarRoster == nil {
		st.Venue.CarRoster = []string{}
	}
	if st.Venue.CarNames == nil {
		st.Venue.CarNames = map[string]string{}
	}
}

// ResetForNewVenue clears session-scoped fields when the venue changes.
// The down message always survives; the info message survives only when
// the recycle flag is set, so the pinned message can be edited in place
// across venues instead of being deleted and recreated.
func (st *State) ResetForNewVenue(recycleInfo bool) {
	st.Online = map[string]string{}
	st.SeenNameCars = []SeenEntry{}
	st.Laps = map[string]map[string]LapRecord{}
	st.Registration = map[string]Registrant{}
	st.Schedule = Schedule{}
	st.Venue = Venue{CarRoster: []string{}, CarNames: map[string]string{}}
	st.SessionEndTime = 0
	st.OnlineMessageID = 0
	st.OneHourMessageID = 0
	st.QualifyingMessageID = 0
	if !recycleInfo {
		st.InfoMessageID = 0
	}
}

// TouchSeen records "name (car)" as seen now, preserving insertion
// order for already known keys.
func (st *State) TouchSeen(key string, now int64) {
	for i := range st.SeenNameCars {
		if st.SeenNameCars[i].Key == key {
			st.SeenNameCars[i].LastSeen = now
			return
		}
	}
	st.SeenNameCars = append(st.SeenNameCars, SeenEntry{Key: key, LastSeen: now})
}

// CarName resolves a car directory to its display name, falling back
// to the directory itself.
func (st *State) CarName(dir string) string {
	if name, ok := st.Venue.CarNames[dir]; ok && name != "" {
		return name
	}
	return dir
}
