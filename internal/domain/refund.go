package domain

import (
	"time"

	"github.com/google/uuid"
)

type RefundStatus string

const (
	RefundPending  RefundStatus = "PENDING"
	RefundApproved RefundStatus = "APPROVED"
	RefundRejected RefundStatus = "REJECTED"
)

// RefundRequest is the administrative review ticket created when a
// reservation is cancelled. Keyed uniquely by reservation: a repeat
// cancellation refreshes the existing request instead of duplicating it.
// PENDING resolves to APPROVED or REJECTED exactly once.
type RefundRequest struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	UserID        uuid.UUID
	Reason        string
	Status        RefundStatus
	ReviewedByID  *uuid.UUID
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

func NewRefundRequest(reservationID, userID uuid.UUID, reason string, now time.Time) RefundRequest {
	return RefundRequest{
		ID:            uuid.New(),
		ReservationID: reservationID,
		UserID:        userID,
		Reason:        reason,
		Status:        RefundPending,
		CreatedAt:     now,
	}
}

func (r RefundRequest) Resolved() bool {
	return r.Status != RefundPending
}
