package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/shopspring/decimal"
)

func (r *Repository) CreatePayment(ctx context.Context, p domain.Payment) error {
	const stmt = `
INSERT INTO payments (id, reservation_id, amount, method, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q(ctx).Exec(ctx, stmt, p.ID, p.ReservationID, p.Amount.String(), p.Method, p.Status, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(domain.ErrConflict, "payment already exists for reservation")
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *Repository) GetPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	const query = `
SELECT id, reservation_id, amount::text, method, status, refund_amount::text, refunded_at, created_at
FROM payments WHERE reservation_id = $1`

	var (
		p            domain.Payment
		amount       string
		refundAmount *string
	)
	err := r.q(ctx).QueryRow(ctx, query, reservationID).
		Scan(&p.ID, &p.ReservationID, &amount, &p.Method, &p.Status, &refundAmount, &p.RefundedAt, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse payment amount: %w", err)
	}
	if refundAmount != nil {
		d, err := decimal.NewFromString(*refundAmount)
		if err != nil {
			return nil, fmt.Errorf("parse refund amount: %w", err)
		}
		p.RefundAmount = &d
	}
	return &p, nil
}

// MarkPaymentRefunded flips a COMPLETED payment to REFUNDED; any other prior
// status is rejected.
func (r *Repository) MarkPaymentRefunded(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	const stmt = `
UPDATE payments SET status = 'REFUNDED', refund_amount = $2, refunded_at = $3
WHERE id = $1 AND status = 'COMPLETED'`

	result, err := r.q(ctx).Exec(ctx, stmt, paymentID, amount.String(), at)
	if err != nil {
		return fmt.Errorf("mark payment refunded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrInvalidState, "payment not refundable")
	}
	return nil
}
