package session

import (
	"sync"
	"time"
)

type EventType string

const (
	EventCartOpened     EventType = "CART_OPENED"
	EventCartClosed     EventType = "CART_CLOSED"
	EventCartChanged    EventType = "CART_CHANGED"
	EventVendorConflict EventType = "VENDOR_CONFLICT"
	EventCouponChanged  EventType = "COUPON_CHANGED"
)

type Event struct {
	Type EventType   `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

const subscriberBuffer = 16

// Bus fans events out to every open UI stream of a user. A slow subscriber
// loses events instead of blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Event]struct{})}
}

func (b *Bus) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) Publish(userID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Bus) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
