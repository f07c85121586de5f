package servers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"acmonitorbot/pkg/model"
)

const mtTiming = "timing"

// socketMessage is the envelope carried on the timing stream.
type socketMessage struct {
	MessageType string          `json:"type"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// socketTiming keeps a websocket connection to a streaming timing
// endpoint and caches the latest snapshot for the poll loop to pull.
// Connection trouble triggers the same cooldown as a broken snapshot
// file.
type socketTiming struct {
	url string

	mu            sync.Mutex
	latest        model.TimingSnapshot
	running       bool
	cooldownUntil time.Time
}

func newSocketTiming(url string) *socketTiming {
	return &socketTiming{url: url}
}

func (s *socketTiming) Fetch() (model.TimingSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running && time.Now().After(s.cooldownUntil) {
		s.running = true
		go s.readLoop()
	}
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

func (s *socketTiming) readLoop() {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		log.Printf("Error connecting to timing stream: %s", err.Error())
		s.stop()
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Error reading timing stream: %s", err.Error())
			s.stop()
			return
		}

		var msg socketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.MessageType != mtTiming {
			continue
		}

		var snapshot model.TimingSnapshot
		if err := json.Unmarshal(msg.Body, &snapshot); err != nil {
			continue
		}

		s.mu.Lock()
		s.latest = snapshot
		s.mu.Unlock()
	}
}

func (s *socketTiming) stop() {
	s.mu.Lock()
	s.running = false
	s.cooldownUntil = time.Now().Add(failureCooldown)
	s.mu.Unlock()
}
