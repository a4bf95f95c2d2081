package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/shopspring/decimal"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRoom(ctx context.Context, roomID uuid.UUID) (domain.Room, error)
	RoomAvailable(ctx context.Context, roomID uuid.UUID, start, end, asOf time.Time) (bool, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	EnqueueEvent(ctx context.Context, ev Event) error
}

type HoldService struct {
	repo    HoldRepository
	clock   clock.Clock
	audit   AuditLog
	holdTTL time.Duration
}

const defaultHoldTTL = 15 * time.Minute

func NewHoldService(repo HoldRepository, clk clock.Clock, audit AuditLog, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		clock:   clk,
		audit:   audit,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type CreateHoldInput struct {
	RoomID      uuid.UUID
	UserID      uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	TotalAmount *decimal.Decimal
}

// CreateHold places a time-limited PENDING reservation on a room. The
// availability check and the insert run in one serializable transaction so
// two concurrent requests for overlapping ranges cannot both observe
// "available".
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Reservation, error) {
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return domain.Reservation{}, errors.Wrap(domain.ErrInvalidInput, "missing dates")
	}
	if !in.StartDate.Before(in.EndDate) {
		return domain.Reservation{}, errors.Wrap(domain.ErrInvalidInput, "start date must be before end date")
	}

	now := s.clock.Now()
	var created domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.repo.GetRoom(txCtx, in.RoomID)
		if err != nil {
			return err
		}

		available, err := s.repo.RoomAvailable(txCtx, in.RoomID, in.StartDate, in.EndDate, now)
		if err != nil {
			return err
		}
		if !available {
			return errors.Wrap(domain.ErrConflict, "room not available for the selected dates")
		}

		amount := room.Price
		if in.TotalAmount != nil {
			amount = *in.TotalAmount
		}

		created = domain.NewHold(in.RoomID, in.UserID, in.StartDate, in.EndDate, amount, now, s.holdTTL)
		if err := s.repo.CreateReservation(txCtx, created); err != nil {
			return err
		}

		return s.repo.EnqueueEvent(txCtx, Event{
			AggregateType: "reservation",
			AggregateID:   created.ID,
			Type:          "reservation.hold_created",
			Payload: map[string]interface{}{
				"reservation_id":  created.ID,
				"room_id":         created.RoomID,
				"hold_expires_at": created.HoldExpiresAt.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.HoldConflicts.Inc()
		}
		return domain.Reservation{}, err
	}

	observability.HoldsCreated.Inc()
	s.audit.LogAction(ctx, in.UserID, "reservation hold created", map[string]interface{}{
		"reservation_id": created.ID,
		"room_id":        created.RoomID,
	})
	return created, nil
}

// HoldTTL exposes the configured hold duration (for response messages).
func (s *HoldService) HoldTTL() time.Duration {
	return s.holdTTL
}
