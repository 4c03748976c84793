package models

import (
	"homestay/src/types"

	"github.com/google/uuid"
)

// Transaction is an immutable ledger entry tied to a booking. Rows are only
// ever created by lifecycle operations; status progression belongs to the
// settlement process.
type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	BookingID   uint                    `json:"booking_id,omitempty"`
	UserID      uint                    `json:"user_id,omitempty"`
	Type        types.TransactionType   `json:"type,omitempty"`
	Amount      float64                 `json:"amount,omitempty"`
	Currency    string                  `gorm:"default:'VND'" json:"currency,omitempty"`
	Status      types.TransactionStatus `gorm:"default:'pending'" json:"status,omitempty"`
	ReferenceID string                  `json:"reference_id,omitempty"`
	Description string                  `json:"description,omitempty"`
	Metadata    types.JSONB             `gorm:"type:jsonb" json:"-"`

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}
