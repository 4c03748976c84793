package models

import (
	"homestay/src/types"
	"time"
)

type Booking struct {
	ID        uint `gorm:"primarykey" json:"id"`
	GuestID   uint `json:"guest_id,omitempty"`
	HostID    uint `json:"host_id,omitempty"`
	ListingID uint `json:"listing_id,omitempty"`

	CheckIn  time.Time `json:"check_in,omitempty"`
	CheckOut time.Time `json:"check_out,omitempty"`
	Nights   int       `json:"nights,omitempty"`

	BasePrice               float64 `json:"base_price,omitempty"`
	CleaningFee             float64 `json:"cleaning_fee,omitempty"`
	AdditionalServicesTotal float64 `json:"additional_services_total,omitempty"`
	ServiceFee              float64 `json:"service_fee,omitempty"`
	TotalPrice              float64 `json:"total_price,omitempty"`
	Currency                string  `gorm:"default:'VND'" json:"currency,omitempty"`

	Status        types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`

	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`

	CancelledBy        *uint   `json:"cancelled_by,omitempty"`
	PaymentConfirmedBy *uint   `json:"payment_confirmed_by,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
	PaymentNotes       *string `json:"payment_notes,omitempty"`

	Metadata types.JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`

	Guest        *User         `gorm:"foreignKey:guest_id" json:"guest,omitempty"`
	Host         *User         `gorm:"foreignKey:host_id" json:"host,omitempty"`
	Listing      *Listing      `gorm:"foreignKey:listing_id" json:"listing,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:booking_id" json:"transactions,omitempty"`

	types.Timestamps
}
