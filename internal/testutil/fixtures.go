// Package testutil holds fixtures shared by the service and controller tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/store"
	"taquilla/internal/store/memory"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	Currency  = "NIO"
	JWTSecret = "test-jwt-secret"
)

// Epoch is the fixed instant manual clocks start from
var Epoch = time.Date(2026, time.March, 14, 19, 0, 0, 0, time.UTC)

// NewStore returns an empty in-memory store
func NewStore() *memory.Store {
	return memory.New()
}

// Numbered is a seeded numbered presentation
type Numbered struct {
	Presentation *domain.Presentation
	Seats        []*domain.Seat
}

// SeatIDs returns the ids of the first n seats
func (n Numbered) SeatIDs(count int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, count)
	for _, s := range n.Seats[:count] {
		ids = append(ids, s.ID)
	}
	return ids
}

// SeedNumbered creates an on-sale numbered presentation with seats A-1..A-count at price
func SeedNumbered(t *testing.T, st store.Store, count int, price int64) Numbered {
	t.Helper()

	p := &domain.Presentation{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		VenueID:   uuid.New(),
		VenueType: domain.VenueNumbered,
		StartsAt:  Epoch.Add(72 * time.Hour),
		Status:    domain.PresentationOnSale,
	}

	seats := make([]*domain.Seat, 0, count)
	for n := 1; n <= count; n++ {
		seats = append(seats, &domain.Seat{
			ID:             domain.SeatID(p.ID, "Platea", "A", n),
			PresentationID: p.ID,
			Section:        "Platea",
			Row:            "A",
			Number:         n,
			UnitPrice:      price,
			Currency:       Currency,
			Status:         domain.SeatAvailable,
		})
	}

	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		if err := tx.PutPresentation(p); err != nil {
			return err
		}
		for _, s := range seats {
			if err := tx.PutSeat(s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed numbered presentation: %v", err)
	}
	return Numbered{Presentation: p, Seats: seats}
}

// General is a seeded general-admission presentation with one tier
type General struct {
	Presentation *domain.Presentation
	Tier         *domain.PricingTier
}

// SeedGeneral creates an on-sale general presentation with a single tier
func SeedGeneral(t *testing.T, st store.Store, capacity, sold int, price int64) General {
	t.Helper()

	p := &domain.Presentation{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		VenueID:   uuid.New(),
		VenueType: domain.VenueGeneral,
		StartsAt:  Epoch.Add(72 * time.Hour),
		Status:    domain.PresentationOnSale,
	}
	tier := &domain.PricingTier{
		ID:             uuid.New(),
		PresentationID: p.ID,
		Name:           "General",
		UnitPrice:      price,
		Currency:       Currency,
		Capacity:       capacity,
		Sold:           sold,
	}

	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		if err := tx.PutPresentation(p); err != nil {
			return err
		}
		return tx.PutTier(tier)
	})
	if err != nil {
		t.Fatalf("seed general presentation: %v", err)
	}
	return General{Presentation: p, Tier: tier}
}

// MustSeat reads a seat's committed state
func MustSeat(t *testing.T, st store.Store, id uuid.UUID) *domain.Seat {
	t.Helper()
	var seat *domain.Seat
	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		var err error
		seat, err = tx.GetSeat(id)
		return err
	})
	if err != nil {
		t.Fatalf("read seat %s: %v", id, err)
	}
	return seat
}

// MustTier reads a tier's committed state
func MustTier(t *testing.T, st store.Store, id uuid.UUID) *domain.PricingTier {
	t.Helper()
	var tier *domain.PricingTier
	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		var err error
		tier, err = tx.GetTier(id)
		return err
	})
	if err != nil {
		t.Fatalf("read tier %s: %v", id, err)
	}
	return tier
}

// Token signs a bearer token the way the auth provider does
func Token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

// HoldSeats reserves seats for holder until the given instant, bypassing the hold service
func HoldSeats(t *testing.T, st store.Store, ids []uuid.UUID, holder string, until time.Time) {
	t.Helper()
	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		for _, id := range ids {
			seat, err := tx.GetSeat(id)
			if err != nil {
				return err
			}
			seat.Reserve(holder, until)
			if err := tx.PutSeat(seat); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("hold seats: %v", err)
	}
}

// PutIntent stores an intent as-is
func PutIntent(t *testing.T, st store.Store, intent *domain.PaymentIntent) {
	t.Helper()
	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		return tx.PutIntent(intent)
	})
	if err != nil {
		t.Fatalf("put intent: %v", err)
	}
}
