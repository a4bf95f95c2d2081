package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment records the captured charge for a confirmed reservation. Capture is
// simulated synchronously, so confirmation creates the payment directly in
// COMPLETED state. At most one payment exists per reservation.
type Payment struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Method        string
	Status        PaymentStatus
	RefundAmount  *decimal.Decimal
	RefundedAt    *time.Time
	CreatedAt     time.Time
}

func NewCompletedPayment(reservationID uuid.UUID, amount decimal.Decimal, method string, now time.Time) Payment {
	return Payment{
		ID:            uuid.New(),
		ReservationID: reservationID,
		Amount:        amount,
		Method:        method,
		Status:        PaymentCompleted,
		CreatedAt:     now,
	}
}
