package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LapsedHold identifies a PENDING reservation whose hold has expired and
// which has not been announced yet. Expiry stays lazy: the reservation row's
// status is never changed, only the notification marker is set.
type LapsedHold struct {
	ReservationID uuid.UUID
	RoomID        uuid.UUID
	UserID        uuid.UUID
	HoldExpiresAt time.Time
}

func (r *Repository) ListLapsedUnnotifiedHolds(ctx context.Context, asOf time.Time, limit int) ([]LapsedHold, error) {
	const query = `
SELECT id, room_id, user_id, hold_expires_at
FROM reservations
WHERE status = 'PENDING'
  AND hold_expires_at IS NOT NULL
  AND hold_expires_at <= $1
  AND hold_expiry_notified_at IS NULL
ORDER BY hold_expires_at ASC
LIMIT $2`

	rows, err := r.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list lapsed holds: %w", err)
	}
	defer rows.Close()

	var holds []LapsedHold
	for rows.Next() {
		var h LapsedHold
		if err := rows.Scan(&h.ReservationID, &h.RoomID, &h.UserID, &h.HoldExpiresAt); err != nil {
			return nil, fmt.Errorf("scan lapsed hold: %w", err)
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (r *Repository) MarkHoldExpiryNotified(ctx context.Context, reservationID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE reservations SET hold_expiry_notified_at = $2 WHERE id = $1 AND hold_expiry_notified_at IS NULL`,
		reservationID, at)
	return err
}
