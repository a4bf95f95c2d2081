package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

type ConfirmRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservationForUpdate(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error
	CreatePayment(ctx context.Context, p domain.Payment) error
	EnqueueEvent(ctx context.Context, ev Event) error
}

type ConfirmService struct {
	repo  ConfirmRepository
	clock clock.Clock
	audit AuditLog
}

func NewConfirmService(repo ConfirmRepository, clk clock.Clock, audit AuditLog) *ConfirmService {
	return &ConfirmService{repo: repo, clock: clk, audit: audit}
}

type ConfirmResult struct {
	Reservation domain.Reservation
	Payment     domain.Payment
}

// Confirm transitions a PENDING reservation with an unexpired hold to
// CONFIRMED and captures its payment in the same transaction. Payment capture
// is simulated: the payment is created directly in COMPLETED state.
func (s *ConfirmService) Confirm(ctx context.Context, reservationID uuid.UUID, paymentMethod string, caller auth.Caller) (ConfirmResult, error) {
	if paymentMethod == "" {
		return ConfirmResult{}, errors.Wrap(domain.ErrInvalidInput, "missing payment method")
	}

	now := s.clock.Now()
	var result ConfirmResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationPending {
			return errors.Wrap(domain.ErrInvalidState, "reservation not pending")
		}
		if res.HoldLapsed(now) {
			return errors.Wrap(domain.ErrHoldExpired, "hold expired")
		}

		if err := s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationConfirmed); err != nil {
			return err
		}
		res.Status = domain.ReservationConfirmed

		payment := domain.NewCompletedPayment(res.ID, res.TotalAmount, paymentMethod, now)
		if err := s.repo.CreatePayment(txCtx, payment); err != nil {
			return err
		}

		result = ConfirmResult{Reservation: res, Payment: payment}
		return s.repo.EnqueueEvent(txCtx, Event{
			AggregateType: "reservation",
			AggregateID:   res.ID,
			Type:          "reservation.confirmed",
			Payload: map[string]interface{}{
				"reservation_id": res.ID,
				"payment_id":     payment.ID,
				"amount":         payment.Amount.String(),
			},
		})
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	s.audit.LogAction(ctx, caller.ID, "reservation confirmed", map[string]interface{}{
		"reservation_id": result.Reservation.ID,
		"payment_id":     result.Payment.ID,
	})
	return result, nil
}
