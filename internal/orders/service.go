package orders

import (
	"context"

	"taquilla/internal/domain"
	"taquilla/internal/inventory"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

// Notifier is told about an order once its sale has committed. Errors are logged only.
type Notifier interface {
	OrderCompleted(ctx context.Context, order *domain.Order) error
}

type NopNotifier struct{}

func (NopNotifier) OrderCompleted(context.Context, *domain.Order) error { return nil }

type Service interface {
	// Finalize converts a confirmed payment into sold inventory plus an order, atomically
	Finalize(ctx context.Context, req FinalizeRequest) (*domain.Order, error)
	// Void cancels orders and restores their inventory, one transaction per order
	Void(ctx context.Context, orderIDs []uuid.UUID) (*VoidResult, error)
	VoidAll(ctx context.Context) (*VoidResult, error)

	ListUserOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error)
	ListOrders(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error)
}

type service struct {
	store    store.Store
	cache    inventory.Invalidator
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
}

func NewService(st store.Store, cache inventory.Invalidator, notifier Notifier, clk clock.Clock, log *logger.Logger) Service {
	if cache == nil {
		cache = inventory.NopInvalidator{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &service{
		store:    st,
		cache:    cache,
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
}

// LISTINGS

func (s *service) ListUserOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	return s.store.ListUserOrders(ctx, buyerID)
}

func (s *service) ListOrders(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && filter.Status != domain.OrderCompleted && filter.Status != domain.OrderCancelled {
		return nil, errs.E(errs.InvalidArgument, "unknown order status %q", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListOrders(ctx, filter)
}
