package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomMaintenance RoomStatus = "MAINTENANCE"
	RoomUnavailable RoomStatus = "UNAVAILABLE"
)

// Room is owned by the hotel catalog; the engine reads it for existence and
// the base price used when a hold does not supply an amount.
type Room struct {
	ID       uuid.UUID
	HotelID  uuid.UUID
	Number   string
	Price    decimal.Decimal
	Capacity int
	Status   RoomStatus
}
