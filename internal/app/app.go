package app

import (
	"context"

	"github.com/google/uuid"
)

// Event is written to the transactional outbox inside the same transaction as
// the state change it describes; a relay publishes it to the broker later.
type Event struct {
	AggregateType string
	AggregateID   uuid.UUID
	Type          string
	Payload       map[string]interface{}
}

// AuditLog records user-visible actions fire-and-forget: failures are logged
// by the implementation and never fail the operation.
type AuditLog interface {
	LogAction(ctx context.Context, userID uuid.UUID, action string, data map[string]interface{})
}

// NopAudit discards audit records; used in tests.
type NopAudit struct{}

func (NopAudit) LogAction(context.Context, uuid.UUID, string, map[string]interface{}) {}
