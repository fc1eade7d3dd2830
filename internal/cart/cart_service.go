// Package cart serves the signed-in user's cart from a cache that is
// invalidated and refetched after every write. Nothing is ever applied
// optimistically; the marketplace is the only source of truth.
package cart

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go-storefront/internal/marketplace"
	"go-storefront/internal/pkg/metrics"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/inflight"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	OpAdd   = "add"
	OpClear = "clear"
)

func OpUpdate(itemID string) string { return "update:" + itemID }
func OpRemove(itemID string) string { return "remove:" + itemID }

//go:generate mockgen -source=cart_service.go -destination=../mock/cart/cart_service_mock.go -package=mock
type Service interface {
	Detail(ctx context.Context, id session.Identity) (Snapshot, error)
	Refresh(ctx context.Context, id session.Identity) (Snapshot, error)

	AddItem(ctx context.Context, id session.Identity, req AddItemRequest) (Snapshot, error)
	UpdateQty(ctx context.Context, id session.Identity, itemID string, req UpdateQtyRequest) (Snapshot, error)

	Increment(ctx context.Context, id session.Identity, itemID string) (Snapshot, error)
	Decrement(ctx context.Context, id session.Identity, itemID string) (Snapshot, error)

	RemoveItem(ctx context.Context, id session.Identity, itemID string) (Snapshot, error)
	Clear(ctx context.Context, id session.Identity) (Snapshot, error)

	// Invalidate drops the cached snapshot without a refetch.
	Invalidate(ctx context.Context, userID string) error
	// Pending lists the operation keys currently in flight for userID.
	Pending(userID string) []string
}

type Deps struct {
	Client   marketplace.Client
	Cache    Cache
	Sessions session.Manager
	Tracker  *inflight.Tracker
	Logger   *zap.Logger
}

type service struct {
	client   marketplace.Client
	cache    Cache
	sessions session.Manager
	tracker  *inflight.Tracker
	validate *validator.Validate
	logger   *zap.Logger
	group    singleflight.Group
	now      func() time.Time

	mu       sync.Mutex
	fetching map[string]int
}

func NewService(d Deps) Service {
	if d.Cache == nil {
		d.Cache = NewMemoryCache(0)
	}
	if d.Tracker == nil {
		d.Tracker = inflight.NewTracker()
	}
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	return &service{
		client:   d.Client,
		cache:    d.Cache,
		sessions: d.Sessions,
		tracker:  d.Tracker,
		validate: validator.New(),
		logger:   d.Logger.Named("cart.service"),
		now:      time.Now,
		fetching: make(map[string]int),
	}
}

// ========================
// reads
// ========================

func (s *service) Detail(ctx context.Context, id session.Identity) (Snapshot, error) {
	if id.UserID == "" {
		return Snapshot{}, ErrMissingSession
	}

	e, ok, err := s.cache.Get(ctx, id.UserID)
	if err != nil {
		s.logger.Warn("cart cache read failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
	if ok && !e.Stale {
		metrics.CartFetches.WithLabelValues("cache").Inc()
		return Snapshot{
			Cart:       e.Cart,
			FetchedAt:  e.FetchedAt,
			IsFetching: s.isFetching(id.UserID),
		}, nil
	}

	return s.fetch(ctx, id)
}

func (s *service) Refresh(ctx context.Context, id session.Identity) (Snapshot, error) {
	if id.UserID == "" {
		return Snapshot{}, ErrMissingSession
	}
	if err := s.Invalidate(ctx, id.UserID); err != nil {
		s.logger.Warn("cart invalidate failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
	return s.fetch(ctx, id)
}

// fetch collapses concurrent refetches of one user, but only within the
// same cache generation: a refetch started after an invalidation never
// joins one that started before it.
func (s *service) fetch(ctx context.Context, id session.Identity) (Snapshot, error) {
	gen, genErr := s.cache.Generation(ctx, id.UserID)
	if genErr != nil {
		s.logger.Warn("cart cache generation failed", zap.String("user_id", id.UserID), zap.Error(genErr))
	}
	key := id.UserID + ":" + strconv.FormatUint(gen, 10)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.markFetching(id.UserID, 1)
		defer s.markFetching(id.UserID, -1)

		rc, err := s.client.GetCart(ctx, id.AccessToken)
		if err != nil {
			return nil, err
		}
		metrics.CartFetches.WithLabelValues("remote").Inc()

		e := Entry{Cart: fromRemote(rc), FetchedAt: s.now()}
		if genErr == nil {
			stored, err := s.cache.Store(ctx, id.UserID, gen, e)
			if err != nil {
				s.logger.Warn("cart cache store failed", zap.String("user_id", id.UserID), zap.Error(err))
			} else if !stored {
				s.logger.Debug("cart snapshot superseded", zap.String("user_id", id.UserID), zap.Uint64("gen", gen))
			}
		}
		return e, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	e := v.(Entry)
	return Snapshot{Cart: e.Cart, FetchedAt: e.FetchedAt}, nil
}

func (s *service) markFetching(userID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching[userID] += delta
	if s.fetching[userID] <= 0 {
		delete(s.fetching, userID)
	}
}

func (s *service) isFetching(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching[userID] > 0
}

// ========================
// writes
// ========================

func (s *service) AddItem(ctx context.Context, id session.Identity, req AddItemRequest) (Snapshot, error) {
	if err := s.validate.Struct(req); err != nil {
		return Snapshot{}, MapValidationError(err)
	}

	snap, err := s.mutate(ctx, id, OpAdd, func() error {
		return s.client.AddCartItem(ctx, id.AccessToken, marketplace.AddCartItemRequest{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			VendorID:  req.VendorID,
		})
	})
	if err != nil {
		return Snapshot{}, err
	}

	if s.sessions != nil {
		if _, err := s.sessions.SetCartOpen(ctx, id.UserID, true); err != nil {
			s.logger.Warn("open cart panel failed", zap.String("user_id", id.UserID), zap.Error(err))
		}
	}
	return snap, nil
}

// UpdateQty turns a relative change into the absolute quantity the
// marketplace expects, computed from the current line. A result below 1
// is rejected here and never sent.
func (s *service) UpdateQty(ctx context.Context, id session.Identity, itemID string, req UpdateQtyRequest) (Snapshot, error) {
	if err := s.validate.Struct(req); err != nil {
		return Snapshot{}, MapValidationError(err)
	}
	if itemID == "" {
		return Snapshot{}, ErrInvalidItemID
	}

	return s.mutate(ctx, id, OpUpdate(itemID), func() error {
		current, err := s.Detail(ctx, id)
		if err != nil {
			return err
		}
		item, ok := current.Cart.FindItem(itemID)
		if !ok {
			return ErrCartItemNotFound
		}

		next := item.Quantity + req.Delta
		if next < 1 {
			return ErrInvalidQty
		}
		return s.client.UpdateCartItem(ctx, id.AccessToken, itemID, marketplace.UpdateCartItemRequest{Quantity: next})
	})
}

func (s *service) Increment(ctx context.Context, id session.Identity, itemID string) (Snapshot, error) {
	return s.UpdateQty(ctx, id, itemID, UpdateQtyRequest{Delta: 1})
}

func (s *service) Decrement(ctx context.Context, id session.Identity, itemID string) (Snapshot, error) {
	return s.UpdateQty(ctx, id, itemID, UpdateQtyRequest{Delta: -1})
}

func (s *service) RemoveItem(ctx context.Context, id session.Identity, itemID string) (Snapshot, error) {
	if itemID == "" {
		return Snapshot{}, ErrInvalidItemID
	}
	return s.mutate(ctx, id, OpRemove(itemID), func() error {
		return s.client.RemoveCartItem(ctx, id.AccessToken, itemID)
	})
}

func (s *service) Clear(ctx context.Context, id session.Identity) (Snapshot, error) {
	return s.mutate(ctx, id, OpClear, func() error {
		return s.client.ClearCart(ctx, id.AccessToken)
	})
}

func (s *service) Invalidate(ctx context.Context, userID string) error {
	_, err := s.cache.Invalidate(ctx, userID)
	return err
}

func (s *service) Pending(userID string) []string {
	return s.tracker.Pending(userID)
}

// mutate runs one single-shot write. op stays pending until the follow-up
// refetch has settled. On error nothing local is touched.
func (s *service) mutate(ctx context.Context, id session.Identity, op string, call func() error) (Snapshot, error) {
	if id.UserID == "" {
		return Snapshot{}, ErrMissingSession
	}

	done, err := s.tracker.Begin(id.UserID, op)
	if err != nil {
		return Snapshot{}, err
	}
	defer done()

	log := s.logger.With(zap.String("user_id", id.UserID), zap.String("op", op))

	err = call()
	metrics.CartMutations.WithLabelValues(opLabel(op), metrics.Result(err)).Inc()
	if err != nil {
		log.Info("cart mutation rejected", zap.Error(err))
		return Snapshot{}, err
	}

	if err := s.Invalidate(ctx, id.UserID); err != nil {
		log.Warn("cart invalidate failed", zap.Error(err))
	}
	if s.sessions != nil {
		s.sessions.Publish(id.UserID, session.Event{Type: session.EventCartChanged, Data: op})
	}

	snap, err := s.fetch(ctx, id)
	if err != nil {
		// the write went through; serve what we have and let the next read refetch
		log.Warn("refetch after write failed", zap.Error(err))
		e, ok, gerr := s.cache.Get(ctx, id.UserID)
		if gerr != nil || !ok {
			return Snapshot{}, ErrCartReloadFailed
		}
		return Snapshot{Cart: e.Cart, FetchedAt: e.FetchedAt, Stale: true}, nil
	}
	return snap, nil
}

// opLabel strips the item id so metric cardinality stays fixed.
func opLabel(op string) string {
	for i := 0; i < len(op); i++ {
		if op[i] == ':' {
			return op[:i]
		}
	}
	return op
}
