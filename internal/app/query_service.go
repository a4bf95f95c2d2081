package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
)

// ReservationFilter narrows a reservation listing. Nil fields match anything.
type ReservationFilter struct {
	UserID *uuid.UUID
	Status *domain.ReservationStatus
}

type QueryRepository interface {
	ListReservations(ctx context.Context, f ReservationFilter, p pagination.Params) ([]domain.Reservation, int, error)
	BlockedRanges(ctx context.Context, roomID uuid.UUID, asOf time.Time) ([]domain.DateRange, error)
}

// QueryService serves the read-only listing endpoints; it never mutates state
// and runs outside the lifecycle transactions.
type QueryService struct {
	repo  QueryRepository
	clock clock.Clock
}

func NewQueryService(repo QueryRepository, clk clock.Clock) *QueryService {
	return &QueryService{repo: repo, clock: clk}
}

// ListReservations scopes CLIENT callers to their own reservations; elevated
// callers see everything.
func (s *QueryService) ListReservations(ctx context.Context, caller auth.Caller, status *domain.ReservationStatus, p pagination.Params) ([]domain.Reservation, pagination.Meta, error) {
	filter := ReservationFilter{Status: status}
	if !caller.Role.Elevated() {
		filter.UserID = &caller.ID
	}

	reservations, total, err := s.repo.ListReservations(ctx, filter, p)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return reservations, pagination.NewMeta(total, p), nil
}

// RoomAvailability returns the date ranges currently blocked on a room.
func (s *QueryService) RoomAvailability(ctx context.Context, roomID uuid.UUID) ([]domain.DateRange, error) {
	return s.repo.BlockedRanges(ctx, roomID, s.clock.Now())
}
