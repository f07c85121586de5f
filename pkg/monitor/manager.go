package monitor

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"acmonitorbot/pkg/config"
	"acmonitorbot/pkg/event"
	"acmonitorbot/pkg/laps"
	"acmonitorbot/pkg/messenger"
	"acmonitorbot/pkg/model"
	"acmonitorbot/pkg/presence"
	"acmonitorbot/pkg/pubsub"
	"acmonitorbot/pkg/schedule"
	"acmonitorbot/pkg/servers"
	"acmonitorbot/pkg/session"
	"acmonitorbot/pkg/venue"
)

// Manager is the poll loop: it probes the game server, reconciles the
// observations into the session record and refreshes the outward
// messages when something observable changed. All of a tick's work,
// persistence included, finishes before the next tick starts.
type Manager struct {
	ctx context.Context
	mu  sync.Mutex

	cfg   *config.Config
	msg   *messenger.Messenger
	store *session.Store
	st    *session.State

	presence *presence.Tracker
	venues   *venue.Tracker
	sched    *schedule.Scheduler
	client   *servers.Client
	timing   servers.TimingSource

	pubsubMgr *pubsub.PubSub

	firstTick    bool
	lastEntrants []model.Entrant
	carsets      map[string][]string
	publicIP     string

	// fixedQualify is the configured recurrence start; event-derived
	// timestamps replace it for as long as a descriptor is present and
	// are never auto-week advanced.
	fixedQualify time.Time
}

func NewManager(ctx context.Context, cfg *config.Config, msg *messenger.Messenger, store *session.Store, st *session.State, pubsubMgr *pubsub.PubSub) *Manager {
	m := &Manager{
		ctx:       ctx,
		cfg:       cfg,
		msg:       msg,
		store:     store,
		st:        st,
		presence:  presence.NewTracker(cfg.Monitor.OnlineTimeout),
		sched:     schedule.NewScheduler(cfg.Monitor.QualifyMinutes),
		client:    servers.NewClient(cfg.Server.HTTPURL),
		timing:    servers.NewTimingSource(cfg.Server.LiveTimingSource),
		pubsubMgr: pubsubMgr,
		firstTick: true,
	}
	m.venues = venue.NewTracker(cfg.Server.ContentDir, cfg.Server.CarsetsDir, liveTimingFile(cfg), cfg.Monitor.VenueRecycleMessage, store)

	if cfg.Monitor.QualifyTime != "" {
		t, err := time.Parse(time.RFC3339, cfg.Monitor.QualifyTime)
		if err != nil {
			log.Printf("Error parsing qualify_time: %s", err.Error())
		} else {
			m.fixedQualify = t
		}
	}

	carsets, err := venue.LoadCarsets(cfg.Server.CarsetsDir)
	if err != nil {
		log.Printf("Error loading carsets: %s", err.Error())
	}
	m.carsets = carsets

	return m
}

// liveTimingFile is the snapshot path the venue tracker clears on a
// venue change. Streaming sources have no file to clear.
func liveTimingFile(cfg *config.Config) string {
	src := cfg.Server.LiveTimingSource
	if strings.HasPrefix(src, "ws://") || strings.HasPrefix(src, "wss://") {
		return ""
	}
	return src
}

// Sync runs one tick immediately and then keeps ticking until the exit
// channel fires.
func (m *Manager) Sync(ticker *time.Ticker, exitChan chan bool) {
	m.doSync(time.Now())
	go func() {
		for {
			select {
			case <-exitChan:
				return
			case t := <-ticker.C:
				m.doSync(t)
			}
		}
	}()
}

func (m *Manager) doSync(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false

	if m.firstTick && m.publicIP == "" {
		m.resolvePublicIP()
	}

	up := servers.Probe(m.cfg.Server.Host, m.cfg.Server.TCPPort, m.cfg.Server.ProbeTimeout)
	if up {
		changed = m.tickUp(now) || changed
	} else {
		changed = m.tickDown(now) || changed
	}

	if m.presence.Expire(m.st, now) {
		m.msg.Delete(m.cfg.Telegram.OnlineChatID, m.st.OnlineMessageID)
		m.st.OnlineMessageID = 0
		changed = true
	}

	if m.firstTick || changed {
		m.refreshMessages(now)
		if err := m.store.Save(m.st); err != nil {
			log.Printf("Error saving session state: %s", err.Error())
		}
	}
	m.firstTick = false
}

// tickDown handles a tick with the server unreachable. Registrations
// can still be edited while the server process is offline, so the
// event descriptor is processed regardless.
func (m *Manager) tickDown(now time.Time) bool {
	changed := false

	if m.st.ServerIsUp {
		// up -> down edge
		m.st.ServerIsUp = false
		changed = true
		log.Printf("Server went down")
		m.runHook(m.cfg.Hooks.ServerDown)
		m.publishAlert(model.AlertServerDown, "The server is no longer reachable.", now)

		changed = m.presence.Diff(m.st, []model.Entrant{}, now) || changed
		m.lastEntrants = nil

		if !m.cfg.Monitor.NoDownWarning && m.st.DownMessageID == 0 {
			id, err := m.msg.SendText(m.cfg.Telegram.InfoChatID, "⚠️ The server appears to be down.")
			if err != nil {
				log.Printf("Error sending down notice: %s", err.Error())
			} else {
				m.st.DownMessageID = id
			}
		}
	}

	return m.processEvent(now) || changed
}

// tickUp handles a tick with the server reachable: pull details, diff
// presence, reconcile venue, ingest laps, run scheduler checks.
func (m *Manager) tickUp(now time.Time) bool {
	changed := false

	if !m.st.ServerIsUp {
		// down -> up edge
		m.st.ServerIsUp = true
		changed = true
		log.Printf("Server is up")
		m.runHook(m.cfg.Hooks.ServerUp)
		m.publishAlert(model.AlertServerUp, "The server is reachable again.", now)

		if m.st.DownMessageID != 0 {
			m.msg.Delete(m.cfg.Telegram.InfoChatID, m.st.DownMessageID)
			m.st.DownMessageID = 0
		}
	}

	details, err := m.client.FetchDetails(m.ctx)
	if err != nil {
		log.Printf("Error fetching server details: %s", err.Error())
	} else {
		if m.venues.Update(m.st, details.Track, details.TrackLayout, details.Cars, now) {
			changed = true
			m.reloadCarsets()
			m.resolvePublicIP()
		}
		entrants := details.Entrants()
		if m.presence.Diff(m.st, entrants, now) {
			changed = true
		}
		m.lastEntrants = entrants
	}

	changed = m.processEvent(now) || changed
	changed = m.ingestTiming() || changed
	changed = m.checkSchedule(now) || changed

	return changed
}

// processEvent folds the external race/event descriptor into the
// schedule and registration facts. Registration is monotonic: entries
// are only ever added.
func (m *Manager) processEvent(now time.Time) bool {
	desc, err := event.Load(m.cfg.Server.EventDescriptorPath)
	if err != nil {
		log.Printf("Error loading event descriptor: %s", err.Error())
		return false
	}
	if desc == nil {
		return false
	}

	changed := false
	for guid, reg := range desc.Entrants {
		if _, ok := m.st.Registration[guid]; ok {
			continue
		}
		m.st.Registration[guid] = reg
		changed = true
		log.Printf("New registrant: %s (%s)", reg.Name, reg.Car)
	}

	sched := session.Schedule{
		NumberSlots:      desc.Slots,
		NumberRegistered: len(m.st.Registration),
	}
	qual := desc.Scheduled
	if qual.IsZero() {
		qual = m.recurrenceStart(now)
	}
	if !qual.IsZero() {
		dur := m.sched.Duration()
		if desc.QualifyMinutes > 0 {
			dur = time.Duration(desc.QualifyMinutes) * time.Minute
		}
		sched.QualifyTimestamp = qual.Unix()
		sched.RaceTimestamp = qual.Add(dur).Unix()
	}
	if sched != m.st.Schedule {
		m.st.Schedule = sched
		changed = true
	}
	return changed
}

// recurrenceStart resolves the fixed configured qualifying start,
// auto-advanced weekly when the flag is on. Event-derived timestamps
// never pass through here.
func (m *Manager) recurrenceStart(now time.Time) time.Time {
	if m.fixedQualify.IsZero() {
		return time.Time{}
	}
	if !m.cfg.Monitor.AutoWeek {
		return m.fixedQualify
	}
	return schedule.AutoWeek(m.fixedQualify, m.sched.Duration(), now)
}

// ingestTiming folds the live timing snapshot into the lap ledger.
func (m *Manager) ingestTiming() bool {
	if m.timing == nil {
		return false
	}
	snapshot, ok := m.timing.Fetch()
	if !ok {
		return false
	}

	changed := false
	for guid, driver := range snapshot {
		name := driver.Name
		if name == "" {
			if reg, ok := m.st.Registration[guid]; ok {
				name = reg.Name
			} else {
				continue
			}
		}
		for car, timing := range driver.Cars {
			if timing.BestLapNs <= 0 {
				continue
			}
			ms := float64(timing.BestLapNs) / 1e6
			if laps.Record(m.st, name, car, ms, 0, timing.LapCount) {
				changed = true
			}
		}
	}
	return changed
}

// checkSchedule drives the one-hour and qualifying windows: each edits
// a dedicated message in place while active, fires its hook once per
// window entry, and cleans its message up when the window closes.
func (m *Manager) checkSchedule(now time.Time) bool {
	qual := m.qualifyStart(now)
	ev := m.sched.Check(qual, now)
	changed := false

	if ev.OneHourEntered {
		m.runHook(m.cfg.Hooks.OneHour)
		m.publishAlert(model.AlertOneHour, "Qualifying starts in one hour.", now)
	}
	if ev.OneHourActive {
		body := renderCountdown("Qualifying starts", qual, now)
		id, err := m.msg.SendOrEdit(m.cfg.Telegram.InfoChatID, m.st.OneHourMessageID, body)
		if err != nil {
			log.Printf("Error updating one hour message: %s", err.Error())
		} else if id != m.st.OneHourMessageID {
			m.st.OneHourMessageID = id
			changed = true
		}
	} else if m.st.OneHourMessageID != 0 {
		m.msg.Delete(m.cfg.Telegram.InfoChatID, m.st.OneHourMessageID)
		m.st.OneHourMessageID = 0
		changed = true
	}

	if ev.QualEntered {
		m.runHook(m.cfg.Hooks.Qualifying)
		m.publishAlert(model.AlertQualifying, "Qualifying is underway.", now)
	}
	if ev.QualActive {
		body := renderCountdown("Qualifying ends", qual.Add(m.sched.Duration()), now)
		id, err := m.msg.SendOrEdit(m.cfg.Telegram.InfoChatID, m.st.QualifyingMessageID, body)
		if err != nil {
			log.Printf("Error updating qualifying message: %s", err.Error())
		} else if id != m.st.QualifyingMessageID {
			m.st.QualifyingMessageID = id
			changed = true
		}
	} else if m.st.QualifyingMessageID != 0 {
		m.msg.Delete(m.cfg.Telegram.InfoChatID, m.st.QualifyingMessageID)
		m.st.QualifyingMessageID = 0
		changed = true
	}

	return changed
}

// qualifyStart picks the schedule source for this tick: an
// event-derived timestamp when one is stored, otherwise the fixed
// recurrence.
func (m *Manager) qualifyStart(now time.Time) time.Time {
	if m.st.Schedule.QualifyTimestamp != 0 {
		return time.Unix(m.st.Schedule.QualifyTimestamp, 0)
	}
	return m.recurrenceStart(now)
}

func (m *Manager) reloadCarsets() {
	carsets, err := venue.LoadCarsets(m.cfg.Server.CarsetsDir)
	if err != nil {
		log.Printf("Error loading carsets: %s", err.Error())
		return
	}
	m.carsets = carsets
}

func (m *Manager) resolvePublicIP() {
	if m.cfg.Monitor.PublicIPResolverURL == "" {
		return
	}
	ip, err := servers.ResolvePublicIP(m.ctx, m.cfg.Monitor.PublicIPResolverURL)
	if err != nil {
		log.Printf("Error resolving public ip: %s", err.Error())
		return
	}
	m.publicIP = ip
}

func (m *Manager) publishAlert(kind, text string, now time.Time) {
	ev := model.AlertEvent{
		Kind:      kind,
		Venue:     m.st.Venue.TrackName,
		Text:      text,
		Timestamp: now.Unix(),
	}
	payload, err := ev.Encode()
	if err != nil {
		log.Printf("Error encoding alert: %s", err.Error())
		return
	}
	m.pubsubMgr.Publish(model.PubSubAlertsTopic, payload)
}
