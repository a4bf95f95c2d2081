package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

type CancelRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservationForUpdate(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	UpsertRefundRequest(ctx context.Context, rr domain.RefundRequest) (domain.RefundRequest, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error
	EnqueueEvent(ctx context.Context, ev Event) error
}

type CancelService struct {
	repo  CancelRepository
	clock clock.Clock
	audit AuditLog
}

func NewCancelService(repo CancelRepository, clk clock.Clock, audit AuditLog) *CancelService {
	return &CancelService{repo: repo, clock: clk, audit: audit}
}

type CancelResult struct {
	Reservation   domain.Reservation
	RefundRequest domain.RefundRequest
}

// RequestCancellation cancels an active reservation immediately and creates
// (or refreshes) the PENDING refund request that an administrator resolves
// later. Non-elevated callers may only cancel their own reservations.
func (s *CancelService) RequestCancellation(ctx context.Context, reservationID uuid.UUID, caller auth.Caller, reason string) (CancelResult, error) {
	now := s.clock.Now()
	var result CancelResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := auth.Authorize(caller, res.UserID); err != nil {
			return err
		}
		if res.Status != domain.ReservationPending && res.Status != domain.ReservationConfirmed {
			return errors.Wrap(domain.ErrInvalidState, "reservation cannot be cancelled")
		}

		rr, err := s.repo.UpsertRefundRequest(txCtx, domain.NewRefundRequest(res.ID, caller.ID, reason, now))
		if err != nil {
			return err
		}

		if err := s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationCancelled); err != nil {
			return err
		}
		res.Status = domain.ReservationCancelled

		result = CancelResult{Reservation: res, RefundRequest: rr}
		return s.repo.EnqueueEvent(txCtx, Event{
			AggregateType: "reservation",
			AggregateID:   res.ID,
			Type:          "reservation.cancelled",
			Payload: map[string]interface{}{
				"reservation_id":    res.ID,
				"refund_request_id": rr.ID,
			},
		})
	})
	if err != nil {
		return CancelResult{}, err
	}

	s.audit.LogAction(ctx, caller.ID, "cancellation requested", map[string]interface{}{
		"reservation_id":    result.Reservation.ID,
		"refund_request_id": result.RefundRequest.ID,
	})
	return result, nil
}
