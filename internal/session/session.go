// Package session holds the storefront UI state for one signed-in user:
// cart panel visibility, the vendor-conflict alert and the product waiting
// for confirmation. State is per user and never survives a Reset.
package session

import (
	"context"
	"time"

	"go-storefront/internal/shared/statestore"
)

// Identity is who is calling and the token forwarded to the marketplace.
type Identity struct {
	UserID      string
	AccessToken string
}

type PendingProduct struct {
	ProductID   string    `json:"productId"`
	VendorID    string    `json:"vendorId"`
	Name        string    `json:"name,omitempty"`
	Quantity    int       `json:"quantity"`
	RequestedAt time.Time `json:"requestedAt"`
}

type State struct {
	CartOpen    bool            `json:"cartOpen"`
	VendorAlert bool            `json:"vendorAlert"`
	Pending     *PendingProduct `json:"pendingProduct"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Manager interface {
	State(ctx context.Context, userID string) (State, error)
	SetCartOpen(ctx context.Context, userID string, open bool) (State, error)

	// SetPending replaces any product already waiting (last write wins).
	SetPending(ctx context.Context, userID string, p PendingProduct) (State, error)
	// TakePending returns the waiting product, if any, and clears it.
	TakePending(ctx context.Context, userID string) (*PendingProduct, error)
	ClearPending(ctx context.Context, userID string) (State, error)

	Reset(ctx context.Context, userID string) error

	Publish(userID string, ev Event)
	Subscribe(userID string) (<-chan Event, func())
}

type manager struct {
	store statestore.Store[State]
	bus   *Bus
	now   func() time.Time
}

func NewManager(store statestore.Store[State], bus *Bus) Manager {
	if bus == nil {
		bus = NewBus()
	}
	return &manager{store: store, bus: bus, now: time.Now}
}

func (m *manager) State(ctx context.Context, userID string) (State, error) {
	return m.store.Get(ctx, userID)
}

func (m *manager) SetCartOpen(ctx context.Context, userID string, open bool) (State, error) {
	st, err := m.store.Update(ctx, userID, func(s *State) error {
		s.CartOpen = open
		s.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return State{}, err
	}

	evType := EventCartClosed
	if open {
		evType = EventCartOpened
	}
	m.Publish(userID, Event{Type: evType})
	return st, nil
}

func (m *manager) SetPending(ctx context.Context, userID string, p PendingProduct) (State, error) {
	if p.RequestedAt.IsZero() {
		p.RequestedAt = m.now()
	}
	st, err := m.store.Update(ctx, userID, func(s *State) error {
		s.Pending = &p
		s.VendorAlert = true
		s.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return State{}, err
	}

	m.Publish(userID, Event{Type: EventVendorConflict, Data: p})
	return st, nil
}

func (m *manager) TakePending(ctx context.Context, userID string) (*PendingProduct, error) {
	var taken *PendingProduct
	_, err := m.store.Update(ctx, userID, func(s *State) error {
		taken = s.Pending
		s.Pending = nil
		s.VendorAlert = false
		s.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

func (m *manager) ClearPending(ctx context.Context, userID string) (State, error) {
	return m.store.Update(ctx, userID, func(s *State) error {
		s.Pending = nil
		s.VendorAlert = false
		s.UpdatedAt = m.now()
		return nil
	})
}

func (m *manager) Reset(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, userID)
}

func (m *manager) Publish(userID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	m.bus.Publish(userID, ev)
}

func (m *manager) Subscribe(userID string) (<-chan Event, func()) {
	return m.bus.Subscribe(userID)
}
