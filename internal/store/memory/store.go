// Package memory is an in-process Store with the same transaction semantics as the
// database backend: reads record the version they observed, writes are staged, and the
// commit is rejected if any observed document changed in the meantime.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"

	"github.com/google/uuid"
)

const (
	presentationsPrefix = "presentations/"
	tiersPrefix         = "pricingtiers/"
	seatsPrefix         = "seats/"
	intentsPrefix       = "payment_intents/"
	ordersPrefix        = "orders/"
	userOrdersPrefix    = "users/"
)

type document struct {
	version uint64
	value   interface{}
}

// Store keeps every document in a map guarded by one mutex. The mutex is held only while
// reading a single document or committing; transaction functions run without it.
type Store struct {
	mu          sync.Mutex
	docs        map[string]document
	maxAttempts int
	now         func() time.Time
}

type Option func(*Store)

// WithMaxAttempts sets the retry budget of RunInTx
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithNow overrides the timestamp source used for created_at/updated_at
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]document),
		maxAttempts: store.DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.Retry(ctx, s.maxAttempts, func() error {
		t := &tx{
			s:      s,
			reads:  make(map[string]uint64),
			writes: make(map[string]interface{}),
		}
		if err := fn(t); err != nil {
			return err
		}
		return s.commit(t)
	})
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range t.reads {
		if s.docs[key].version != seen {
			return store.ErrConflict
		}
	}
	for key, value := range t.writes {
		d := s.docs[key]
		s.docs[key] = document{version: d.version + 1, value: value}
	}
	return nil
}

func (s *Store) load(key string) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[key]
	return d, ok
}

// scan returns the values whose key starts with prefix, under one lock acquisition.
func (s *Store) scan(prefix string) []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interface{}
	for key, d := range s.docs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, d.value)
		}
	}
	return out
}

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

type tx struct {
	s      *Store
	reads  map[string]uint64
	writes map[string]interface{}
}

func (t *tx) get(key string) (interface{}, bool) {
	if v, ok := t.writes[key]; ok {
		return v, true
	}
	d, ok := t.s.load(key)
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = d.version
	}
	if !ok {
		return nil, false
	}
	return d.value, true
}

func (t *tx) GetPresentation(id uuid.UUID) (*domain.Presentation, error) {
	v, ok := t.get(presentationsPrefix + id.String())
	if !ok {
		return nil, store.NotFound("presentation", id)
	}
	p := *v.(*domain.Presentation)
	return &p, nil
}

func (t *tx) GetTier(id uuid.UUID) (*domain.PricingTier, error) {
	v, ok := t.get(tiersPrefix + id.String())
	if !ok {
		return nil, store.NotFound("pricing tier", id)
	}
	tier := *v.(*domain.PricingTier)
	return &tier, nil
}

func (t *tx) GetSeat(id uuid.UUID) (*domain.Seat, error) {
	v, ok := t.get(seatsPrefix + id.String())
	if !ok {
		return nil, store.NotFound("seat", id)
	}
	return cloneSeat(v.(*domain.Seat)), nil
}

func (t *tx) GetIntent(reference string) (*domain.PaymentIntent, error) {
	v, ok := t.get(intentsPrefix + reference)
	if !ok {
		return nil, store.NotFound("payment intent", reference)
	}
	return v.(*domain.PaymentIntent).Clone(), nil
}

func (t *tx) GetOrder(id uuid.UUID) (*domain.Order, error) {
	v, ok := t.get(ordersPrefix + id.String())
	if !ok {
		return nil, store.NotFound("order", id)
	}
	return v.(*domain.Order).Clone(), nil
}

func (t *tx) PutPresentation(p *domain.Presentation) error {
	c := *p
	t.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.writes[presentationsPrefix+c.ID.String()] = &c
	return nil
}

func (t *tx) PutTier(tier *domain.PricingTier) error {
	if tier.Sold < 0 || tier.Sold > tier.Capacity {
		return errs.E(errs.Internal, "pricing tier %s sold %d outside [0, %d]", tier.ID, tier.Sold, tier.Capacity)
	}
	c := *tier
	t.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.writes[tiersPrefix+c.ID.String()] = &c
	return nil
}

func (t *tx) PutSeat(seat *domain.Seat) error {
	c := cloneSeat(seat)
	t.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.writes[seatsPrefix+c.ID.String()] = c
	return nil
}

func (t *tx) PutIntent(i *domain.PaymentIntent) error {
	c := i.Clone()
	t.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.writes[intentsPrefix+c.Reference] = c
	return nil
}

func (t *tx) PutOrder(o *domain.Order) error {
	if o.IntentReference != nil {
		for _, v := range t.s.scan(ordersPrefix) {
			other := v.(*domain.Order)
			if other.ID != o.ID && other.IntentReference != nil && *other.IntentReference == *o.IntentReference {
				return errs.E(errs.FailedPrecondition, "intent %s already has order %s", *o.IntentReference, other.ID)
			}
		}
	}
	c := o.Clone()
	t.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.writes[ordersPrefix+c.ID.String()] = c
	t.writes[userOrderKey(c.BuyerID, c.ID)] = c.Clone()
	return nil
}

func userOrderKey(buyer, order uuid.UUID) string {
	return userOrdersPrefix + buyer.String() + "/orders/" + order.String()
}

func cloneSeat(s *domain.Seat) *domain.Seat {
	c := *s
	if s.ReservationExpiry != nil {
		v := *s.ReservationExpiry
		c.ReservationExpiry = &v
	}
	if s.ReservationHolder != nil {
		v := *s.ReservationHolder
		c.ReservationHolder = &v
	}
	if s.SoldTo != nil {
		v := *s.SoldTo
		c.SoldTo = &v
	}
	if s.OrderID != nil {
		v := *s.OrderID
		c.OrderID = &v
	}
	return &c
}

// Readers

func (s *Store) FindPresentation(ctx context.Context, id uuid.UUID) (*domain.Presentation, error) {
	d, ok := s.load(presentationsPrefix + id.String())
	if !ok {
		return nil, store.NotFound("presentation", id)
	}
	p := *d.value.(*domain.Presentation)
	return &p, nil
}

func (s *Store) ListTiers(ctx context.Context, presentationID uuid.UUID) ([]domain.PricingTier, error) {
	var out []domain.PricingTier
	for _, v := range s.scan(tiersPrefix) {
		tier := v.(*domain.PricingTier)
		if tier.PresentationID == presentationID {
			out = append(out, *tier)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListSeats(ctx context.Context, presentationID uuid.UUID) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, v := range s.scan(seatsPrefix) {
		seat := v.(*domain.Seat)
		if seat.PresentationID == presentationID {
			out = append(out, *cloneSeat(seat))
		}
	}
	sortSeats(out)
	return out, nil
}

func (s *Store) FindIntent(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	d, ok := s.load(intentsPrefix + reference)
	if !ok {
		return nil, store.NotFound("payment intent", reference)
	}
	return d.value.(*domain.PaymentIntent).Clone(), nil
}

func (s *Store) ListIntents(ctx context.Context, filter store.IntentFilter) ([]domain.PaymentIntent, error) {
	var out []domain.PaymentIntent
	for _, v := range s.scan(intentsPrefix) {
		intent := v.(*domain.PaymentIntent)
		if filter.Status != "" && intent.Status != filter.Status {
			continue
		}
		out = append(out, *intent.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	excluded := make(map[uuid.UUID]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	var out []domain.Order
	for _, v := range s.scan(ordersPrefix) {
		o := v.(*domain.Order)
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PresentationID != nil && o.PresentationID != *filter.PresentationID {
			continue
		}
		if _, ok := excluded[o.ID]; ok {
			continue
		}
		out = append(out, *o.Clone())
	}
	sortOrders(out)
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) ListUserOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	for _, v := range s.scan(userOrdersPrefix + buyerID.String() + "/orders/") {
		out = append(out, *v.(*domain.Order).Clone())
	}
	sortOrders(out)
	return out, nil
}

func (s *Store) ListExpiredHolds(ctx context.Context, before time.Time, limit int) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, v := range s.scan(seatsPrefix) {
		seat := v.(*domain.Seat)
		if seat.HoldExpired(before) {
			out = append(out, *cloneSeat(seat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationExpiry.Before(*out[j].ReservationExpiry) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortSeats(seats []domain.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PurchasedAt.Equal(orders[j].PurchasedAt) {
			return orders[i].PurchasedAt.After(orders[j].PurchasedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}

func paginate(orders []domain.Order, offset, limit int) []domain.Order {
	if offset > 0 {
		if offset >= len(orders) {
			return nil
		}
		orders = orders[offset:]
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders
}
