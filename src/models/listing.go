package models

import (
	"homestay/src/types"
	"time"
)

type Listing struct {
	ID                 uint                    `gorm:"primarykey" json:"id"`
	Title              string                  `json:"title,omitempty"`
	Location           string                  `json:"location,omitempty"`
	HostID             uint                    `json:"host_id,omitempty"`
	NightlyPrice       float64                 `json:"nightly_price,omitempty"`
	CleaningFee        float64                 `json:"cleaning_fee,omitempty"`
	Currency           string                  `gorm:"default:'VND'" json:"currency,omitempty"`
	CancellationPolicy types.CancellationTier `gorm:"default:'moderate'" json:"cancellation_policy,omitempty"`

	Host         User          `gorm:"foreignKey:host_id" json:"-"`
	Bookings     []Booking     `gorm:"foreignKey:listing_id" json:"bookings,omitempty"`
	BlockedDates []BlockedDate `gorm:"foreignKey:listing_id" json:"blocked_dates,omitempty"`

	types.Timestamps
}

// BlockedDate is a host-defined range during which the listing cannot be booked.
type BlockedDate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ListingID uint      `json:"listing_id,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`
	Note      *string   `json:"note,omitempty"`

	Listing Listing `gorm:"foreignKey:listing_id" json:"-"`

	types.Timestamps
}
