package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/hotel-reservations/internal/adapters/postgres"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/migrations"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "hotel",
				"POSTGRES_PASSWORD": "hotel",
				"POSTGRES_DB":       "hotel",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	return fmt.Sprintf("postgres://hotel:hotel@%s:%s/hotel?sslmode=disable", host, port.Port())
}

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, startPostgres(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return pool
}

func createRoom(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	roomID := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO rooms (id, hotel_id, number, price, capacity, status)
		VALUES ($1, $2, '101', 200.00, 2, 'AVAILABLE')`, roomID, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	return roomID
}

func reservation(roomID uuid.UUID, status domain.ReservationStatus, start, end time.Time, holdExpires *time.Time) domain.Reservation {
	return domain.Reservation{
		ID:            uuid.New(),
		RoomID:        roomID,
		UserID:        uuid.New(),
		StartDate:     start,
		EndDate:       end,
		Status:        status,
		TotalAmount:   decimal.RequireFromString("200.00"),
		HoldExpiresAt: holdExpires,
		CreatedAt:     time.Now(),
	}
}

func TestRepository_AvailabilityPredicate(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)
	repo := postgres.NewRepository(pool)

	roomID := createRoom(t, pool)
	now := time.Now().UTC().Truncate(time.Second)
	feb := func(day int) time.Time { return time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC) }

	if err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationConfirmed, feb(10), feb(12), nil)); err != nil {
		t.Fatal(err)
	}

	available, err := repo.RoomAvailable(ctx, roomID, feb(11), feb(15), now)
	if err != nil {
		t.Fatal(err)
	}
	if available {
		t.Error("expected overlap with confirmed reservation to block")
	}

	// Half-open ranges: back-to-back stays share a boundary day.
	available, err = repo.RoomAvailable(ctx, roomID, feb(12), feb(15), now)
	if err != nil {
		t.Fatal(err)
	}
	if !available {
		t.Error("expected adjacent range to be available")
	}

	lapsed := now.Add(-time.Minute)
	if err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationPending, feb(20), feb(22), &lapsed)); err != nil {
		t.Fatal(err)
	}
	available, err = repo.RoomAvailable(ctx, roomID, feb(20), feb(22), now)
	if err != nil {
		t.Fatal(err)
	}
	if !available {
		t.Error("expected lapsed hold not to block")
	}

	live := now.Add(15 * time.Minute)
	if err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationPending, feb(25), feb(27), &live)); err != nil {
		t.Fatal(err)
	}
	available, err = repo.RoomAvailable(ctx, roomID, feb(26), feb(28), now)
	if err != nil {
		t.Fatal(err)
	}
	if available {
		t.Error("expected live hold to block")
	}
}

func TestRepository_ConfirmedOverlapConstraint(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)
	repo := postgres.NewRepository(pool)

	roomID := createRoom(t, pool)
	feb := func(day int) time.Time { return time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC) }

	if err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationConfirmed, feb(1), feb(5), nil)); err != nil {
		t.Fatal(err)
	}

	err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationConfirmed, feb(3), feb(7), nil))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// The constraint only guards CONFIRMED rows; overlapping PENDING inserts
	// are admitted and filtered by the availability predicate instead.
	if err := repo.CreateReservation(ctx, reservation(roomID, domain.ReservationPending, feb(3), feb(7), nil)); err != nil {
		t.Errorf("expected pending overlap to insert, got %v", err)
	}
}

func TestRepository_RefundRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)
	repo := postgres.NewRepository(pool)

	roomID := createRoom(t, pool)
	feb := func(day int) time.Time { return time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC) }
	res := reservation(roomID, domain.ReservationConfirmed, feb(1), feb(3), nil)
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	first, err := repo.UpsertRefundRequest(ctx, domain.NewRefundRequest(res.ID, res.UserID, "first reason", now))
	if err != nil {
		t.Fatal(err)
	}

	reviewer := uuid.New()
	if err := repo.ResolveRefundRequest(ctx, first.ID, domain.RefundRejected, reviewer, now); err != nil {
		t.Fatal(err)
	}
	err = repo.ResolveRefundRequest(ctx, first.ID, domain.RefundApproved, reviewer, now)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state on second resolve, got %v", err)
	}

	refreshed, err := repo.UpsertRefundRequest(ctx, domain.NewRefundRequest(res.ID, res.UserID, "second reason", now.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.ID != first.ID {
		t.Errorf("expected refresh to keep id %s, got %s", first.ID, refreshed.ID)
	}
	if refreshed.Status != domain.RefundPending || refreshed.Reason != "second reason" {
		t.Errorf("expected refreshed PENDING request, got %s %q", refreshed.Status, refreshed.Reason)
	}
	if refreshed.ReviewedByID != nil || refreshed.ReviewedAt != nil {
		t.Error("expected review fields cleared on refresh")
	}
}

func TestRepository_PaymentGuards(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)
	repo := postgres.NewRepository(pool)

	roomID := createRoom(t, pool)
	feb := func(day int) time.Time { return time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC) }
	res := reservation(roomID, domain.ReservationConfirmed, feb(1), feb(3), nil)
	if err := repo.CreateReservation(ctx, res); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	payment := domain.NewCompletedPayment(res.ID, res.TotalAmount, "CARD", now)
	if err := repo.CreatePayment(ctx, payment); err != nil {
		t.Fatal(err)
	}

	err := repo.CreatePayment(ctx, domain.NewCompletedPayment(res.ID, res.TotalAmount, "CARD", now))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on duplicate payment, got %v", err)
	}

	if err := repo.MarkPaymentRefunded(ctx, payment.ID, payment.Amount, now); err != nil {
		t.Fatal(err)
	}
	err = repo.MarkPaymentRefunded(ctx, payment.ID, payment.Amount, now)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state on second refund, got %v", err)
	}

	stored, err := repo.GetPaymentByReservation(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.PaymentRefunded || stored.RefundAmount == nil {
		t.Errorf("expected refunded payment with amount, got %v", stored)
	}
}

func TestWithTx_ReleasesConnectionAfterPanic(t *testing.T) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, startPostgres(t)+"&pool_max_conns=1")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	repo := postgres.NewRepository(pool)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = repo.WithTx(ctx, func(context.Context) error { panic("boom") })
	}()

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := pool.Exec(qctx, "SELECT 1"); err != nil {
		t.Fatalf("pool connection not released after panic: %v", err)
	}
}

func TestRepository_OutboxRowsLockedWhileDraining(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)
	repo := postgres.NewRepository(pool)

	for i := 0; i < 3; i++ {
		ev := app.Event{
			AggregateType: "reservation",
			AggregateID:   uuid.New(),
			Type:          "reservation.confirmed",
			Payload:       map[string]interface{}{"seq": i},
		}
		if err := repo.EnqueueEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- repo.WithTx(ctx, func(txCtx context.Context) error {
			records, err := repo.GetUnpublishedOutbox(txCtx, 10)
			if err != nil {
				return err
			}
			if len(records) != 3 {
				return fmt.Errorf("expected 3 claimed records, got %d", len(records))
			}
			close(locked)
			<-release
			for _, rec := range records {
				if err := repo.MarkPublished(txCtx, rec.ID, time.Now()); err != nil {
					return err
				}
			}
			return nil
		})
	}()

	<-locked
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		records, err := repo.GetUnpublishedOutbox(txCtx, 10)
		if err != nil {
			return err
		}
		if len(records) != 0 {
			t.Errorf("expected claimed rows to be skipped, got %d", len(records))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(txCtx context.Context) error {
		records, err := repo.GetUnpublishedOutbox(txCtx, 10)
		if err != nil {
			return err
		}
		if len(records) != 0 {
			t.Errorf("expected all rows published, got %d unpublished", len(records))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
