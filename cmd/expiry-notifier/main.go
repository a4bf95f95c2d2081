package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/hotel-reservations/internal/adapters/postgres"
	"github.com/robertarktes/hotel-reservations/internal/adapters/rabbit"
	"github.com/robertarktes/hotel-reservations/internal/config"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"golang.org/x/sync/errgroup"
)

// The notifier announces lapsed holds to downstream consumers. Expiry itself
// is lazy: lapsed holds stop blocking availability the moment they expire,
// whether or not this worker runs. Reservation status is never changed here.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	notifier := &ExpiryNotifier{repo: repo, rabbitPub: rabbitPub, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Run(ctx, time.Minute)
	logger.Info("Expiry notifier started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry notifier")
}

type ExpiryNotifier struct {
	repo      *postgres.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func (n *ExpiryNotifier) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := n.sweep(ctx, now); err != nil {
				n.logger.Error("expiry sweep failed: ", err)
			}
		}
	}
}

func (n *ExpiryNotifier) sweep(ctx context.Context, now time.Time) error {
	holds, err := n.repo.ListLapsedUnnotifiedHolds(ctx, now, 100)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, hold := range holds {
		hold := hold
		g.Go(func() error {
			payload, _ := json.Marshal(map[string]interface{}{
				"reservation_id":  hold.ReservationID,
				"room_id":         hold.RoomID,
				"hold_expires_at": hold.HoldExpiresAt.Format(time.RFC3339),
			})
			msg := amqp.Publishing{
				MessageId:   uuid.New().String(),
				ContentType: "application/json",
				Body:        payload,
			}
			if err := n.rabbitPub.Publish(gctx, "reservation.hold_expired", msg); err != nil {
				return err
			}
			return n.repo.MarkHoldExpiryNotified(gctx, hold.ReservationID, now)
		})
	}
	return g.Wait()
}
