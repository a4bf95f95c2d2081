package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a booking of one room for a half-open date range
// [StartDate, EndDate). While PENDING it carries a hold that lapses at
// HoldExpiresAt; a nil HoldExpiresAt means the hold never lapses.
type Reservation struct {
	ID            uuid.UUID
	RoomID        uuid.UUID
	UserID        uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	Status        ReservationStatus
	TotalAmount   decimal.Decimal
	HoldExpiresAt *time.Time
	CreatedAt     time.Time
}

func NewHold(roomID, userID uuid.UUID, start, end time.Time, amount decimal.Decimal, now time.Time, ttl time.Duration) Reservation {
	expires := now.Add(ttl)
	return Reservation{
		ID:            uuid.New(),
		RoomID:        roomID,
		UserID:        userID,
		StartDate:     start,
		EndDate:       end,
		Status:        ReservationPending,
		TotalAmount:   amount,
		HoldExpiresAt: &expires,
		CreatedAt:     now,
	}
}

// HoldLapsed reports whether a PENDING reservation's hold has expired as of
// the given instant. Expiry is evaluated lazily: lapsed rows are never swept,
// they just stop blocking and stop being confirmable.
func (r Reservation) HoldLapsed(asOf time.Time) bool {
	return r.Status == ReservationPending && r.HoldExpiresAt != nil && r.HoldExpiresAt.Before(asOf)
}

// Blocks reports whether the reservation prevents a competing booking of the
// same room for an overlapping range as of the given instant.
func (r Reservation) Blocks(asOf time.Time) bool {
	switch r.Status {
	case ReservationConfirmed:
		return true
	case ReservationPending:
		return r.HoldExpiresAt == nil || r.HoldExpiresAt.After(asOf)
	default:
		return false
	}
}

// Overlaps applies half-open interval overlap to the reservation's dates.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartDate.Before(end) && r.EndDate.After(start)
}

// DateRange is an occupied [Start, End) interval, as reported by the room
// availability endpoint.
type DateRange struct {
	Start time.Time
	End   time.Time
}
