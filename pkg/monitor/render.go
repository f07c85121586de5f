package monitor

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"acmonitorbot/pkg/helper"
	"acmonitorbot/pkg/laps"
	"acmonitorbot/pkg/presence"
)

// character budgets for the two big info message sections; the
// messenger still enforces the hard channel cap on the whole body.
const (
	leaderboardBudget = 1800
	statsBudget       = 1200
)

// refreshMessages rebuilds and pushes the info and online messages.
// Message ids returned by the messenger are stored back into the
// session record so the next save persists them.
func (m *Manager) refreshMessages(now time.Time) {
	body := m.renderInfoBody(now)
	id, err := m.msg.SendOrEdit(m.cfg.Telegram.InfoChatID, m.st.InfoMessageID, body)
	if err != nil {
		log.Printf("Error updating info message: %s", err.Error())
	} else {
		m.st.InfoMessageID = id
	}

	online := m.renderOnlineBody()
	if online == "" {
		if m.st.OnlineMessageID != 0 {
			m.msg.Delete(m.cfg.Telegram.OnlineChatID, m.st.OnlineMessageID)
			m.st.OnlineMessageID = 0
		}
		return
	}
	id, err = m.msg.SendOrEdit(m.cfg.Telegram.OnlineChatID, m.st.OnlineMessageID, online)
	if err != nil {
		log.Printf("Error updating online message: %s", err.Error())
	} else {
		m.st.OnlineMessageID = id
	}
}

// renderInfoBody assembles the pinned info message: header, venue,
// connection details, schedule, leaderboard and stats.
func (m *Manager) renderInfoBody(now time.Time) string {
	sections := []string{}

	if m.cfg.Monitor.Header != "" {
		sections = append(sections, m.cfg.Monitor.Header)
	}

	sections = append(sections, m.renderVenueSection())

	if conn := m.renderConnectSection(); conn != "" {
		sections = append(sections, conn)
	}
	if sched := m.renderScheduleSection(now); sched != "" {
		sections = append(sections, sched)
	}

	if board := laps.Leaderboard(m.st, m.carsets, m.cfg.Monitor.LeaderboardLines, leaderboardBudget); board != "" {
		sections = append(sections, "*Leaderboard*\n"+board)
	}
	if stats := laps.Stats(m.st, statsBudget); stats != "" {
		sections = append(sections, stats)
	}

	if m.cfg.Monitor.Footer != "" {
		sections = append(sections, m.cfg.Monitor.Footer)
	}

	return strings.Join(sections, "\n\n")
}

func (m *Manager) renderVenueSection() string {
	if m.st.Venue.TrackDir == "" {
		return "No venue observed yet."
	}
	line := fmt.Sprintf("🏁 *%s*", helper.EscapeMarkup(m.st.Venue.TrackName))
	if m.st.Venue.Layout != "" {
		line += fmt.Sprintf(" (%s)", helper.EscapeMarkup(m.st.Venue.Layout))
	}
	if m.st.Venue.Carset != "" {
		line += fmt.Sprintf("\nCarset: %s", helper.EscapeMarkup(m.st.Venue.Carset))
	}
	if !m.st.ServerIsUp {
		line += "\nServer is currently *down*."
	}
	return line
}

func (m *Manager) renderConnectSection() string {
	if m.publicIP == "" {
		return ""
	}
	return fmt.Sprintf("Connect: `%s:%d`", m.publicIP, m.cfg.Server.TCPPort)
}

func (m *Manager) renderScheduleSection(now time.Time) string {
	qual := m.qualifyStart(now)
	if qual.IsZero() {
		return ""
	}
	lines := []string{fmt.Sprintf("Qualifying: %s", qual.Format("Mon 2 Jan 15:04 MST"))}
	if m.st.Schedule.RaceTimestamp != 0 {
		race := time.Unix(m.st.Schedule.RaceTimestamp, 0)
		lines = append(lines, fmt.Sprintf("Race: %s", race.Format("Mon 2 Jan 15:04 MST")))
	}
	if m.st.Schedule.NumberSlots > 0 {
		lines = append(lines, fmt.Sprintf("Registered: %d/%d", m.st.Schedule.NumberRegistered, m.st.Schedule.NumberSlots))
	}
	return strings.Join(lines, "\n")
}

// renderOnlineBody is the live roster message: who is on now plus who
// was on earlier this session, or the end-of-session summary once the
// roster has emptied. Empty means no message should exist.
func (m *Manager) renderOnlineBody() string {
	if len(m.st.Online) > 0 {
		body := "Online now:\n" + presence.RenderOnline(m.st, m.lastEntrants)
		if prev := presence.RenderPreviously(m.st); prev != "" {
			body += "\n\nPreviously online:\n" + prev
		}
		return body
	}
	if len(m.st.SeenNameCars) > 0 {
		return presence.RenderSummary(m.st)
	}
	return ""
}

func renderCountdown(prefix string, deadline, now time.Time) string {
	left := deadline.Sub(now).Round(time.Minute)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("⏱ %s in %d min (%s)", prefix, int(left.Minutes()), deadline.Format("15:04 MST"))
}

// StandingsTable renders the current best laps as a fixed-width table
// for the /standings chat command.
func (m *Manager) StandingsTable() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	type row struct {
		driver string
		car    string
		timeMs float64
		text   string
		lapN   int
	}
	rows := []row{}
	for driver, byCar := range m.st.Laps {
		for car, rec := range byCar {
			rows = append(rows, row{
				driver: driver,
				car:    m.st.CarName(car),
				timeMs: rec.TimeMs,
				text:   rec.Formatted,
				lapN:   rec.LapCount,
			})
		}
	}
	if len(rows) == 0 {
		return "No laps recorded yet."
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].timeMs < rows[j].timeMs })

	t := table.NewWriter()
	t.AppendHeader(table.Row{"P", "Driver", "Car", "Best", "Laps"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.driver, r.car, r.text, r.lapN})
	}
	t.SetStyle(table.StyleLight)
	return fmt.Sprintf("```\n%s\n```", t.Render())
}
