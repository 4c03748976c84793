package models

import (
	"homestay/src/types"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a durable side effect committed in the same transaction as
// the booking write that produced it. A worker drains pending rows so
// notification or settlement failures are retried instead of dropped.
type OutboxEvent struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Kind      types.OutboxKind   `json:"kind"`
	BookingID uint               `json:"booking_id,omitempty"`
	Payload   types.JSONB        `gorm:"type:jsonb" json:"payload"`
	Status    types.OutboxStatus `gorm:"default:'pending'" json:"status"`
	Attempts  int                `json:"attempts"`
	LastError *string            `json:"last_error,omitempty"`
	DoneAt    *time.Time         `json:"done_at,omitempty"`

	types.Timestamps
}
