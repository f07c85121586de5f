package pubsub

import "sync"

// PubSub fans string payloads out to topic subscribers. Payloads are
// JSON documents produced by a caster.ChannelCaster; publishing with no
// subscriber is a no-op.
type PubSub struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

func NewPubSub() *PubSub {
	return &PubSub{
		subs: make(map[string][]chan string),
	}
}

func (ps *PubSub) Subscribe(topic string) <-chan string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ch := make(chan string, 8)
	ps.subs[topic] = append(ps.subs[topic], ch)
	return ch
}

func (ps *PubSub) Publish(topic string, data string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, ch := range ps.subs[topic] {
		select {
		case ch <- data:
		default:
			// a stalled subscriber must not block the poll loop
		}
	}
}
