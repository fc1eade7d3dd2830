// Package inflight gates duplicate submissions of the same operation.
//
// Each operation key is tracked on its own, so updating one cart line does
// not block removing another. Nothing here serialises different keys.
package inflight

import (
	"net/http"
	"sort"
	"sync"

	"go-storefront/internal/pkg/apperror"
)

var ErrInFlight = apperror.New(
	apperror.CodeOperationPending,
	"This action is already being processed",
	http.StatusConflict,
)

type Tracker struct {
	mu      sync.Mutex
	running map[string]map[string]struct{} // userID -> op keys
}

func NewTracker() *Tracker {
	return &Tracker{running: make(map[string]map[string]struct{})}
}

// Begin marks op as running for userID. The returned func must be called
// once the request settles; it is safe to call more than once.
func (t *Tracker) Begin(userID, op string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops, ok := t.running[userID]
	if !ok {
		ops = make(map[string]struct{})
		t.running[userID] = ops
	}
	if _, busy := ops[op]; busy {
		return nil, ErrInFlight
	}
	ops[op] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() { t.end(userID, op) })
	}, nil
}

func (t *Tracker) end(userID, op string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := t.running[userID]
	delete(ops, op)
	if len(ops) == 0 {
		delete(t.running, userID)
	}
}

func (t *Tracker) IsPending(userID, op string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.running[userID][op]
	return ok
}

// Pending lists the running op keys for userID, sorted.
func (t *Tracker) Pending(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.running[userID]))
	for op := range t.running[userID] {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}
