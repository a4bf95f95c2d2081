package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
)

// UpsertRefundRequest inserts a PENDING request keyed by reservation, or
// refreshes the existing one: new reason and created-at, review fields
// cleared. The stored row keeps its original id and requesting user.
func (r *Repository) UpsertRefundRequest(ctx context.Context, rr domain.RefundRequest) (domain.RefundRequest, error) {
	const stmt = `
INSERT INTO refund_requests (id, reservation_id, user_id, reason, status, created_at)
VALUES ($1, $2, $3, $4, 'PENDING', $5)
ON CONFLICT (reservation_id) DO UPDATE
SET reason = EXCLUDED.reason,
    status = 'PENDING',
    created_at = EXCLUDED.created_at,
    reviewed_by_id = NULL,
    reviewed_at = NULL
RETURNING id, reservation_id, user_id, reason, status, reviewed_by_id, reviewed_at, created_at`

	stored, err := scanRefundRequest(r.q(ctx).QueryRow(ctx, stmt, rr.ID, rr.ReservationID, rr.UserID, rr.Reason, rr.CreatedAt))
	if err != nil {
		return domain.RefundRequest{}, fmt.Errorf("upsert refund request: %w", err)
	}
	return stored, nil
}

func (r *Repository) GetRefundRequestForUpdate(ctx context.Context, id uuid.UUID) (domain.RefundRequest, error) {
	const query = `
SELECT id, reservation_id, user_id, reason, status, reviewed_by_id, reviewed_at, created_at
FROM refund_requests WHERE id = $1 FOR UPDATE`

	rr, err := scanRefundRequest(r.q(ctx).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return domain.RefundRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.RefundRequest{}, fmt.Errorf("get refund request: %w", err)
	}
	return rr, nil
}

// ResolveRefundRequest records the terminal outcome; the status guard keeps a
// resolved request from being resolved twice even outside the service path.
func (r *Repository) ResolveRefundRequest(ctx context.Context, id uuid.UUID, status domain.RefundStatus, reviewerID uuid.UUID, at time.Time) error {
	const stmt = `
UPDATE refund_requests SET status = $2, reviewed_by_id = $3, reviewed_at = $4
WHERE id = $1 AND status = 'PENDING'`

	result, err := r.q(ctx).Exec(ctx, stmt, id, status, reviewerID, at)
	if err != nil {
		return fmt.Errorf("resolve refund request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrInvalidState, "refund already processed")
	}
	return nil
}

func (r *Repository) ListRefundRequests(ctx context.Context, p pagination.Params) ([]domain.RefundRequest, int, error) {
	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM refund_requests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count refund requests: %w", err)
	}

	const query = `
SELECT id, reservation_id, user_id, reason, status, reviewed_by_id, reviewed_at, created_at
FROM refund_requests
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.q(ctx).Query(ctx, query, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list refund requests: %w", err)
	}
	defer rows.Close()

	var refunds []domain.RefundRequest
	for rows.Next() {
		rr, err := scanRefundRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan refund request: %w", err)
		}
		refunds = append(refunds, rr)
	}
	return refunds, total, rows.Err()
}

func scanRefundRequest(row pgx.Row) (domain.RefundRequest, error) {
	var rr domain.RefundRequest
	err := row.Scan(
		&rr.ID,
		&rr.ReservationID,
		&rr.UserID,
		&rr.Reason,
		&rr.Status,
		&rr.ReviewedByID,
		&rr.ReviewedAt,
		&rr.CreatedAt,
	)
	return rr, err
}
