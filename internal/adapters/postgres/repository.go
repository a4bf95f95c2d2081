package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
	"github.com/shopspring/decimal"
)

// Repository implements every app-layer repository interface against one
// Postgres pool. Reads inside WithTx see the transaction carried by the
// context; reads outside run directly on the pool.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *Repository) GetRoom(ctx context.Context, roomID uuid.UUID) (domain.Room, error) {
	const query = `
SELECT id, hotel_id, number, price::text, capacity, status
FROM rooms WHERE id = $1`

	var (
		room  domain.Room
		price string
	)
	err := r.q(ctx).QueryRow(ctx, query, roomID).
		Scan(&room.ID, &room.HotelID, &room.Number, &price, &room.Capacity, &room.Status)
	if err == pgx.ErrNoRows {
		return domain.Room{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("get room: %w", err)
	}
	room.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Room{}, fmt.Errorf("parse room price: %w", err)
	}
	return room, nil
}

// RoomAvailable is the single source of truth for conflict detection: a
// reservation blocks [start, end) when its range overlaps and it is either
// CONFIRMED or PENDING with an unexpired (or absent) hold.
func (r *Repository) RoomAvailable(ctx context.Context, roomID uuid.UUID, start, end, asOf time.Time) (bool, error) {
	const query = `
SELECT NOT EXISTS (
	SELECT 1 FROM reservations
	WHERE room_id = $1
	  AND start_date < $3 AND end_date > $2
	  AND (status = 'CONFIRMED'
	       OR (status = 'PENDING' AND (hold_expires_at IS NULL OR hold_expires_at > $4)))
)`

	var available bool
	if err := r.q(ctx).QueryRow(ctx, query, roomID, start, end, asOf).Scan(&available); err != nil {
		return false, fmt.Errorf("room available: %w", err)
	}
	return available, nil
}

func (r *Repository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, room_id, user_id, start_date, end_date, status, total_amount, hold_expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q(ctx).Exec(ctx, stmt,
		res.ID,
		res.RoomID,
		res.UserID,
		res.StartDate,
		res.EndDate,
		res.Status,
		res.TotalAmount.String(),
		res.HoldExpiresAt,
		res.CreatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *Repository) GetReservationForUpdate(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const query = `
SELECT id, room_id, user_id, start_date, end_date, status, total_amount::text, hold_expires_at, created_at
FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(r.q(ctx).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *Repository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	result, err := r.q(ctx).Exec(ctx, `UPDATE reservations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListReservations(ctx context.Context, f app.ReservationFilter, p pagination.Params) ([]domain.Reservation, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reservations `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	query := fmt.Sprintf(`
SELECT id, room_id, user_id, start_date, end_date, status, total_amount::text, hold_expires_at, created_at
FROM reservations %s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, total, rows.Err()
}

func (r *Repository) BlockedRanges(ctx context.Context, roomID uuid.UUID, asOf time.Time) ([]domain.DateRange, error) {
	const query = `
SELECT start_date, end_date FROM reservations
WHERE room_id = $1
  AND (status = 'CONFIRMED'
       OR (status = 'PENDING' AND (hold_expires_at IS NULL OR hold_expires_at > $2)))
ORDER BY start_date`

	rows, err := r.q(ctx).Query(ctx, query, roomID, asOf)
	if err != nil {
		return nil, fmt.Errorf("blocked ranges: %w", err)
	}
	defer rows.Close()

	var ranges []domain.DateRange
	for rows.Next() {
		var dr domain.DateRange
		if err := rows.Scan(&dr.Start, &dr.End); err != nil {
			return nil, fmt.Errorf("scan range: %w", err)
		}
		ranges = append(ranges, dr)
	}
	return ranges, rows.Err()
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res    domain.Reservation
		amount string
	)
	err := row.Scan(
		&res.ID,
		&res.RoomID,
		&res.UserID,
		&res.StartDate,
		&res.EndDate,
		&res.Status,
		&amount,
		&res.HoldExpiresAt,
		&res.CreatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.TotalAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("parse total amount: %w", err)
	}
	return res, nil
}
