package payments

import (
	"context"

	"taquilla/internal/domain"
	"taquilla/internal/inventory"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/internal/users"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service is the payment-intent ledger. It records what each checkout is paying for and
// moves intents through their lifecycle; it never touches inventory.
type Service interface {
	CreateIntent(ctx context.Context, userID uuid.UUID, buyer domain.BuyerContact, payload domain.PurchasePayload) (*CreateIntentResponse, error)
	// Transition applies ev to the intent in one transaction. Events that do not apply
	// leave the intent as it was and report Applied=false.
	Transition(ctx context.Context, reference string, ev Event) (*domain.PaymentIntent, Outcome, error)
	Get(ctx context.Context, identity users.Identity, reference string) (*IntentStatusResponse, error)
	ListByStatus(ctx context.Context, status domain.IntentStatus, limit int) ([]domain.PaymentIntent, error)
}

type service struct {
	store   store.Store
	gateway *Gateway
	clock   clock.Clock
	log     *logger.Logger
}

func NewService(st store.Store, gateway *Gateway, clk clock.Clock, log *logger.Logger) Service {
	return &service{
		store:   st,
		gateway: gateway,
		clock:   clk,
		log:     log,
	}
}

// CREATE

func (s *service) CreateIntent(ctx context.Context, userID uuid.UUID, buyer domain.BuyerContact, payload domain.PurchasePayload) (*CreateIntentResponse, error) {
	if userID == uuid.Nil {
		return nil, errs.E(errs.Unauthenticated, "a signed-in buyer is required")
	}

	now := s.clock.Now()
	intent := &domain.PaymentIntent{
		Reference: uuid.NewString(),
		UserID:    userID,
		Buyer:     buyer,
		Payload:   payload,
		Status:    domain.IntentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Signed before anything is stored, so a gateway misconfiguration leaves no pending intent
	redirect, expiresAt, err := s.gateway.RedirectURL(intent)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		// The quote is checked here so a stale cart fails before the buyer is sent to pay;
		// the holds it sees are checked again when the order is finalized.
		quote, err := inventory.BuildQuote(tx, payload.PresentationID, payload.Type, payload.Lines, inventory.QuoteOptions{
			Holder:        payload.HolderSessionID,
			Now:           now,
			RequireOnSale: true,
			UnheldCode:    errs.SeatUnavailable,
		})
		if err != nil {
			return err
		}
		if err := quote.Matches(payload.Total, payload.Currency); err != nil {
			return err
		}
		return tx.PutIntent(intent)
	})
	if err != nil {
		return nil, err
	}

	s.log.LogIntentCreated(ctx, intent.Reference, userID.String(), payload.Total, payload.Currency)
	return &CreateIntentResponse{
		Reference:   intent.Reference,
		Status:      intent.Status,
		RedirectURL: redirect,
		ExpiresAt:   expiresAt,
	}, nil
}

// TRANSITIONS

func (s *service) Transition(ctx context.Context, reference string, ev Event) (*domain.PaymentIntent, Outcome, error) {
	var (
		intent  *domain.PaymentIntent
		outcome Outcome
	)
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		current, err := tx.GetIntent(reference)
		if err != nil {
			return err
		}
		outcome, err = Apply(current, ev)
		if err != nil {
			return err
		}
		intent = current
		if !outcome.Applied {
			return nil
		}
		current.UpdatedAt = s.clock.Now()
		return tx.PutIntent(current)
	})
	if err != nil {
		return nil, Outcome{}, err
	}

	if outcome.Applied {
		s.log.LogIntentTransition(ctx, reference, string(outcome.From), string(outcome.To))
	}
	if outcome.NeedsReview {
		s.log.WarnContext(ctx, "Payment event ignored, manual review needed",
			"reference", reference,
			"status", string(outcome.From),
			"event", string(ev.Kind),
			"transaction_id", ev.TransactionID,
		)
	}
	return intent, outcome, nil
}

// READS

func (s *service) Get(ctx context.Context, identity users.Identity, reference string) (*IntentStatusResponse, error) {
	intent, err := s.store.FindIntent(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccess(intent.UserID) {
		return nil, errs.E(errs.PermissionDenied, "payment intent belongs to another user")
	}
	return toStatusResponse(intent), nil
}

func (s *service) ListByStatus(ctx context.Context, status domain.IntentStatus, limit int) ([]domain.PaymentIntent, error) {
	if status != "" && !status.IsValid() {
		return nil, errs.E(errs.InvalidArgument, "unknown payment intent status %q", status)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.ListIntents(ctx, store.IntentFilter{Status: status, Limit: limit})
}
