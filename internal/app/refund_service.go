package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
	"github.com/shopspring/decimal"
)

type RefundRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRefundRequestForUpdate(ctx context.Context, id uuid.UUID) (domain.RefundRequest, error)
	GetPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error)
	MarkPaymentRefunded(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, at time.Time) error
	ResolveRefundRequest(ctx context.Context, id uuid.UUID, status domain.RefundStatus, reviewerID uuid.UUID, at time.Time) error
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error
	ListRefundRequests(ctx context.Context, p pagination.Params) ([]domain.RefundRequest, int, error)
	EnqueueEvent(ctx context.Context, ev Event) error
}

type RefundService struct {
	repo  RefundRepository
	clock clock.Clock
	audit AuditLog
}

func NewRefundService(repo RefundRepository, clk clock.Clock, audit AuditLog) *RefundService {
	return &RefundService{repo: repo, clock: clk, audit: audit}
}

// Review resolves a PENDING refund request exactly once.
//
// Approval refunds the linked payment when one was captured and leaves the
// reservation CANCELLED. Rejection restores the reservation to CONFIRMED;
// the restoration target is CONFIRMED regardless of the pre-cancellation
// status.
func (s *RefundService) Review(ctx context.Context, requestID uuid.UUID, approve bool, reviewer auth.Caller) (domain.RefundRequest, error) {
	now := s.clock.Now()
	var reviewed domain.RefundRequest

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		rr, err := s.repo.GetRefundRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if rr.Resolved() {
			return errors.Wrap(domain.ErrInvalidState, "refund already processed")
		}

		if approve {
			payment, err := s.repo.GetPaymentByReservation(txCtx, rr.ReservationID)
			if err != nil {
				return err
			}
			if payment != nil && payment.Status == domain.PaymentCompleted {
				if err := s.repo.MarkPaymentRefunded(txCtx, payment.ID, payment.Amount, now); err != nil {
					return err
				}
			}
			if err := s.repo.ResolveRefundRequest(txCtx, rr.ID, domain.RefundApproved, reviewer.ID, now); err != nil {
				return err
			}
			if err := s.repo.UpdateReservationStatus(txCtx, rr.ReservationID, domain.ReservationCancelled); err != nil {
				return err
			}
			rr.Status = domain.RefundApproved
		} else {
			if err := s.repo.ResolveRefundRequest(txCtx, rr.ID, domain.RefundRejected, reviewer.ID, now); err != nil {
				return err
			}
			if err := s.repo.UpdateReservationStatus(txCtx, rr.ReservationID, domain.ReservationConfirmed); err != nil {
				return err
			}
			rr.Status = domain.RefundRejected
		}
		rr.ReviewedByID = &reviewer.ID
		rr.ReviewedAt = &now

		reviewed = rr
		return s.repo.EnqueueEvent(txCtx, Event{
			AggregateType: "refund_request",
			AggregateID:   rr.ID,
			Type:          "refund." + outcomeWord(approve),
			Payload: map[string]interface{}{
				"refund_request_id": rr.ID,
				"reservation_id":    rr.ReservationID,
			},
		})
	})
	if err != nil {
		return domain.RefundRequest{}, err
	}

	observability.RefundsReviewed.WithLabelValues(outcomeWord(approve)).Inc()
	s.audit.LogAction(ctx, reviewer.ID, "refund "+outcomeWord(approve), map[string]interface{}{
		"refund_request_id": reviewed.ID,
		"reservation_id":    reviewed.ReservationID,
	})
	return reviewed, nil
}

// ListRefunds returns refund requests newest first, for the admin panel.
func (s *RefundService) ListRefunds(ctx context.Context, p pagination.Params) ([]domain.RefundRequest, pagination.Meta, error) {
	refunds, total, err := s.repo.ListRefundRequests(ctx, p)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return refunds, pagination.NewMeta(total, p), nil
}

func outcomeWord(approve bool) string {
	if approve {
		return "approved"
	}
	return "rejected"
}
