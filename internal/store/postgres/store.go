// Package postgres implements the Store on PostgreSQL through gorm. Every document read
// inside a transaction takes a row lock, so concurrent hold, finalize and release
// transactions on the same seat or tier serialize on the row. Presentations are only
// share-locked, so transactions on different seats of one show still run side by side.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// userOrder is the buyer-scoped mirror of an order (users/{id}/orders)
type userOrder struct {
	domain.Order
}

func (userOrder) TableName() string {
	return "user_orders"
}

// Models lists every table the store needs, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&domain.Presentation{},
		&domain.PricingTier{},
		&domain.Seat{},
		&domain.PaymentIntent{},
		&domain.Order{},
		&userOrder{},
	}
}

type Store struct {
	db          *gorm.DB
	maxAttempts int
}

func New(db *gorm.DB, maxAttempts int) *Store {
	return &Store{db: db, maxAttempts: maxAttempts}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.Retry(ctx, s.maxAttempts, func() error {
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(&tx{db: gtx})
		})
		return translate(err)
	})
}

// translate maps driver errors onto store and application errors. Errors that already
// carry an application code pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errs.Error
	if errors.As(err, &appErr) || errors.Is(err, store.ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
		case pgUniqueViolation:
			return errs.Wrap(errs.FailedPrecondition, err, "duplicate %s", pgErr.ConstraintName)
		}
	}
	return errs.Wrap(errs.Internal, err, "store failure")
}

type tx struct {
	db *gorm.DB
}

// Row lock strengths. Seats, tiers, intents and orders are read to be rewritten and take
// FOR UPDATE. A presentation is only checked by holds and finalizes, so it takes FOR SHARE:
// disjoint seat sets of one show don't queue on its row, while an admin update (whose
// UPDATE needs the row exclusively) still waits for them.
const (
	lockUpdate = "UPDATE"
	lockShare  = "SHARE"
)

func (t *tx) locked(strength string) *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: strength})
}

func (t *tx) first(dest interface{}, kind string, key string, id interface{}) error {
	return t.firstWith(lockUpdate, dest, kind, key, id)
}

func (t *tx) firstWith(strength string, dest interface{}, kind string, key string, id interface{}) error {
	err := t.locked(strength).Where(key+" = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NotFound(kind, id)
	}
	return translate(err)
}

func (t *tx) GetPresentation(id uuid.UUID) (*domain.Presentation, error) {
	var p domain.Presentation
	if err := t.firstWith(lockShare, &p, "presentation", "id", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *tx) GetTier(id uuid.UUID) (*domain.PricingTier, error) {
	var tier domain.PricingTier
	if err := t.first(&tier, "pricing tier", "id", id); err != nil {
		return nil, err
	}
	return &tier, nil
}

func (t *tx) GetSeat(id uuid.UUID) (*domain.Seat, error) {
	var seat domain.Seat
	if err := t.first(&seat, "seat", "id", id); err != nil {
		return nil, err
	}
	return &seat, nil
}

func (t *tx) GetIntent(reference string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	if err := t.first(&intent, "payment intent", "reference", reference); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (t *tx) GetOrder(id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := t.first(&order, "order", "id", id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (t *tx) PutPresentation(p *domain.Presentation) error {
	return translate(t.db.Save(p).Error)
}

func (t *tx) PutTier(tier *domain.PricingTier) error {
	return translate(t.db.Save(tier).Error)
}

func (t *tx) PutSeat(seat *domain.Seat) error {
	return translate(t.db.Save(seat).Error)
}

func (t *tx) PutIntent(i *domain.PaymentIntent) error {
	return translate(t.db.Save(i).Error)
}

func (t *tx) PutOrder(o *domain.Order) error {
	if err := t.db.Save(o).Error; err != nil {
		return translate(err)
	}
	mirror := userOrder{Order: *o}
	return translate(t.db.Save(&mirror).Error)
}

// Readers

func (s *Store) FindPresentation(ctx context.Context, id uuid.UUID) (*domain.Presentation, error) {
	var p domain.Presentation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("presentation", id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListTiers(ctx context.Context, presentationID uuid.UUID) ([]domain.PricingTier, error) {
	var tiers []domain.PricingTier
	err := s.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("name ASC").
		Find(&tiers).Error
	return tiers, translate(err)
}

func (s *Store) ListSeats(ctx context.Context, presentationID uuid.UUID) ([]domain.Seat, error) {
	var seats []domain.Seat
	err := s.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("section ASC, row ASC, number ASC").
		Find(&seats).Error
	return seats, translate(err)
}

func (s *Store) FindIntent(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("payment intent", reference)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &intent, nil
}

func (s *Store) ListIntents(ctx context.Context, filter store.IntentFilter) ([]domain.PaymentIntent, error) {
	q := s.db.WithContext(ctx).Model(&domain.PaymentIntent{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var intents []domain.PaymentIntent
	err := q.Order("created_at DESC").Find(&intents).Error
	return intents, translate(err)
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	q := s.db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PresentationID != nil {
		q = q.Where("presentation_id = ?", *filter.PresentationID)
	}
	if len(filter.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var orders []domain.Order
	err := q.Order("purchased_at DESC, id").Find(&orders).Error
	return orders, translate(err)
}

func (s *Store) ListUserOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	var rows []userOrder
	err := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("purchased_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.Order)
	}
	return orders, nil
}

func (s *Store) ListExpiredHolds(ctx context.Context, before time.Time, limit int) ([]domain.Seat, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND reservation_expiry < ?", domain.SeatReserved, before).
		Order("reservation_expiry ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var seats []domain.Seat
	err := q.Find(&seats).Error
	return seats, translate(err)
}
