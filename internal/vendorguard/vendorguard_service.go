// Package vendorguard gates adding a product whose vendor differs from the
// one already in the cart. Such an add is parked as a pending product until
// the user confirms (the marketplace then replaces the cart) or cancels.
package vendorguard

import (
	"context"

	"go-storefront/internal/cart"
	"go-storefront/internal/pkg/metrics"
	"go-storefront/internal/session"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle                 State = "IDLE"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
)

type Decision struct {
	State   State
	Pending *session.PendingProduct
	// Cart is set when an add actually reached the marketplace.
	Cart *cart.Snapshot
}

type Service interface {
	RequestAdd(ctx context.Context, id session.Identity, req cart.AddItemRequest) (Decision, error)
	Confirm(ctx context.Context, id session.Identity) (Decision, error)
	Cancel(ctx context.Context, id session.Identity) (Decision, error)
	Status(ctx context.Context, userID string) (Decision, error)
}

type Deps struct {
	Cart     cart.Service
	Sessions session.Manager
	Logger   *zap.Logger
}

type service struct {
	cart     cart.Service
	sessions session.Manager
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(d Deps) Service {
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	return &service{
		cart:     d.Cart,
		sessions: d.Sessions,
		validate: validator.New(),
		logger:   d.Logger.Named("vendorguard.service"),
	}
}

func (s *service) RequestAdd(ctx context.Context, id session.Identity, req cart.AddItemRequest) (Decision, error) {
	if err := s.validate.Struct(req); err != nil {
		return Decision{}, cart.MapValidationError(err)
	}

	current, err := s.cart.Detail(ctx, id)
	if err != nil {
		return Decision{}, err
	}

	if current.Cart.AcceptsVendor(req.VendorID) {
		snap, err := s.cart.AddItem(ctx, id, req)
		if err != nil {
			return Decision{}, err
		}
		return Decision{State: StateIdle, Cart: &snap}, nil
	}

	pending := session.PendingProduct{
		ProductID: req.ProductID,
		VendorID:  req.VendorID,
		Name:      req.Name,
		Quantity:  req.Quantity,
	}
	st, err := s.sessions.SetPending(ctx, id.UserID, pending)
	if err != nil {
		return Decision{}, err
	}

	metrics.VendorConflicts.WithLabelValues("detected").Inc()
	s.logger.Info("vendor conflict",
		zap.String("user_id", id.UserID),
		zap.String("cart_vendor", current.Cart.VendorID),
		zap.String("incoming_vendor", req.VendorID),
	)
	return Decision{State: StateAwaitingConfirmation, Pending: st.Pending}, nil
}

// Confirm sends the parked add. The pending product is cleared whether or
// not the marketplace accepts it.
func (s *service) Confirm(ctx context.Context, id session.Identity) (Decision, error) {
	pending, err := s.sessions.TakePending(ctx, id.UserID)
	if err != nil {
		return Decision{}, err
	}
	if pending == nil {
		return Decision{State: StateIdle}, ErrNoPendingProduct
	}

	snap, err := s.cart.AddItem(ctx, id, cart.AddItemRequest{
		ProductID: pending.ProductID,
		Quantity:  pending.Quantity,
		VendorID:  pending.VendorID,
		Name:      pending.Name,
	})
	if err != nil {
		metrics.VendorConflicts.WithLabelValues("confirm_failed").Inc()
		s.logger.Info("vendor conflict confirm rejected", zap.String("user_id", id.UserID), zap.Error(err))
		return Decision{State: StateIdle}, err
	}

	metrics.VendorConflicts.WithLabelValues("confirmed").Inc()
	return Decision{State: StateIdle, Cart: &snap}, nil
}

func (s *service) Cancel(ctx context.Context, id session.Identity) (Decision, error) {
	st, err := s.sessions.State(ctx, id.UserID)
	if err != nil {
		return Decision{}, err
	}
	if st.Pending == nil && !st.VendorAlert {
		return Decision{State: StateIdle}, nil
	}

	if _, err := s.sessions.ClearPending(ctx, id.UserID); err != nil {
		return Decision{}, err
	}
	metrics.VendorConflicts.WithLabelValues("cancelled").Inc()
	return Decision{State: StateIdle}, nil
}

func (s *service) Status(ctx context.Context, userID string) (Decision, error) {
	st, err := s.sessions.State(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if st.Pending == nil {
		return Decision{State: StateIdle}, nil
	}
	return Decision{State: StateAwaitingConfirmation, Pending: st.Pending}, nil
}
