package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by the two ledgers. Dashboards poll GET /events
// or hold a subscription; the core never pushes beyond this feed.
const (
	TokenTransfer    = "token.transfer"
	TokenMint        = "token.mint"
	TokenBurn        = "token.burn"
	ModelListed      = "model.listed"
	ModelPurchased   = "model.purchased"
	ModelRated       = "model.rated"
	MarketWithdrawal = "market.withdrawal"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Feed is a bounded in-process event log: a ring of the most recent
// events plus live subscriber channels. Slow subscribers drop events
// rather than block the publisher.
type Feed struct {
	mu     sync.RWMutex
	ring   []Event
	cap    int
	nextID int
	subs   map[int]chan Event
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 256
	}
	return &Feed{
		cap:  capacity,
		subs: make(map[int]chan Event),
	}
}

func (f *Feed) Publish(eventType string, payload map[string]any) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	f.mu.Lock()
	f.ring = append(f.ring, e)
	if len(f.ring) > f.cap {
		f.ring = f.ring[len(f.ring)-f.cap:]
	}
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default: // subscriber behind, drop
		}
	}
	f.mu.Unlock()
	return e
}

// Recent returns up to n events, newest first.
func (f *Feed) Recent(n int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n <= 0 || n > len(f.ring) {
		n = len(f.ring)
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = f.ring[len(f.ring)-1-i]
	}
	return out
}

// Subscribe returns a buffered channel of future events and a cancel
// function that closes it.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan Event, 64)
	f.subs[id] = ch
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
		f.mu.Unlock()
	}
}
