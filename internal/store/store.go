package store

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"

	"github.com/google/uuid"
)

// ErrConflict is returned by a backend when a transaction lost a race with a concurrent
// writer. RunInTx retries on it and reports errs.Aborted once the budget is spent.
var ErrConflict = errors.New("transaction conflict")

// DefaultMaxAttempts is the retry budget used when none is configured.
const DefaultMaxAttempts = 5

// Tx is the view of the store inside one transaction. Reads observe a consistent snapshot
// and every write is conditioned on it; nothing is visible to other transactions until the
// function passed to RunInTx returns nil and the commit succeeds.
type Tx interface {
	GetPresentation(id uuid.UUID) (*domain.Presentation, error)
	GetTier(id uuid.UUID) (*domain.PricingTier, error)
	GetSeat(id uuid.UUID) (*domain.Seat, error)
	GetIntent(reference string) (*domain.PaymentIntent, error)
	GetOrder(id uuid.UUID) (*domain.Order, error)

	PutPresentation(p *domain.Presentation) error
	PutTier(t *domain.PricingTier) error
	PutSeat(s *domain.Seat) error
	PutIntent(i *domain.PaymentIntent) error
	// PutOrder writes the order to the global collection and to the buyer's mirror.
	PutOrder(o *domain.Order) error
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status         domain.OrderStatus
	PresentationID *uuid.UUID
	ExcludeIDs     []uuid.UUID
	Limit          int
	Offset         int
}

// IntentFilter narrows payment intent listings
type IntentFilter struct {
	Status domain.IntentStatus
	Limit  int
}

// Reader holds the non-transactional queries. Results are committed state and may be
// stale by the time they are used; never base an inventory write on them.
type Reader interface {
	FindPresentation(ctx context.Context, id uuid.UUID) (*domain.Presentation, error)
	ListTiers(ctx context.Context, presentationID uuid.UUID) ([]domain.PricingTier, error)
	ListSeats(ctx context.Context, presentationID uuid.UUID) ([]domain.Seat, error)
	FindIntent(ctx context.Context, reference string) (*domain.PaymentIntent, error)
	ListIntents(ctx context.Context, filter IntentFilter) ([]domain.PaymentIntent, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	ListUserOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error)
	ListExpiredHolds(ctx context.Context, before time.Time, limit int) ([]domain.Seat, error)
}

// Store is the transactional inventory store
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Retry runs attempt until it succeeds, fails with something other than ErrConflict, or
// maxAttempts is reached.
func Retry(ctx context.Context, maxAttempts int, attempt func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		err = attempt()
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}

		backoff := time.Duration(i+1) * 2 * time.Millisecond
		select {
		case <-ctx.Done():
			return errs.Wrap(errs.Aborted, ctx.Err(), "transaction cancelled")
		case <-time.After(backoff):
		}
	}
	return errs.Wrap(errs.Aborted, err, "transaction aborted after %d attempts", maxAttempts)
}

// NotFound builds the error every backend returns for a missing document
func NotFound(kind string, id interface{}) error {
	return errs.E(errs.NotFound, "%s %v not found", kind, id)
}

// SortedIDs returns ids deduplicated and in ascending order. Transactions that touch several
// documents of one kind read them in this order so row locks are always taken the same way.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
