package settings

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"acmonitorbot/pkg/model"
)

// Alerts maps an alert kind to whether the chat wants it.
type Alerts map[string]bool

// Subscriber is one chat receiving alert broadcasts.
type Subscriber struct {
	ChatID string
}

func AllDisabled() Alerts {
	return Alerts{
		model.AlertServerUp:   false,
		model.AlertServerDown: false,
		model.AlertOneHour:    false,
		model.AlertQualifying: false,
	}
}

func (a Alerts) String() string {
	status := []string{}
	status = append(status, fmt.Sprintf("%s Server up alerts", symbolStatus(a[model.AlertServerUp])))
	status = append(status, fmt.Sprintf("%s Server down alerts", symbolStatus(a[model.AlertServerDown])))
	status = append(status, fmt.Sprintf("%s One hour warning", symbolStatus(a[model.AlertOneHour])))
	status = append(status, fmt.Sprintf("%s Qualifying start", symbolStatus(a[model.AlertQualifying])))
	return strings.Join(status, "\n")
}

func symbolStatus(enabled bool) string {
	if enabled {
		return "🔔"
	}
	return "🔕"
}

// Manager stores per-chat alert subscriptions in sqlite.
type Manager struct {
	db *sql.DB
	mu sync.Mutex
}

func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Printf("error opening database: %s\n", err)
		return nil, err
	}

	if _, err := db.Exec(buildCreateAlertsTable()); err != nil {
		log.Printf("error init database: %s\n", err)
		return nil, err
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.db.Close()
}

// Toggle flips one alert kind for a chat and returns the new set.
func (m *Manager) Toggle(chatID, kind string) (Alerts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.listAlerts(chatID)
	if err != nil {
		return a, err
	}
	a[kind] = !a[kind]

	stmt, args := buildUpsertChatCommand(chatID, a)
	if _, err := m.db.Exec(stmt, args...); err != nil {
		log.Printf("error updating database: %s\n", err)
		return a, err
	}
	return a, nil
}

// List returns the alert subscriptions for one chat.
func (m *Manager) List(chatID string) (Alerts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listAlerts(chatID)
}

// Subscribers lists every chat subscribed to the given alert kind.
func (m *Manager) Subscribers(kind string) ([]Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stmt, err := buildSelectSubscribersCommand(kind)
	if err != nil {
		return nil, err
	}
	rows, err := m.db.Query(stmt)
	if err != nil {
		return nil, err
	}
	return scanSubscribers(rows)
}

func (m *Manager) listAlerts(chatID string) (Alerts, error) {
	rows, err := m.db.Query(buildSelectChatCommand(), chatID)
	if err != nil {
		return AllDisabled(), err
	}
	return scanAlerts(rows)
}
