package models

import (
	"homestay/src/types"
	"time"
)

type User struct {
	ID               uint                   `gorm:"primarykey" json:"id"`
	Name             string                 `json:"name,omitempty"`
	Email            string                 `json:"email,omitempty"`
	Role             string                 `gorm:"default:'guest'" json:"role,omitempty"`
	EmailVerified    bool                   `json:"email_verified,omitempty"`
	VerifiedAt       time.Time              `json:"verified_at,omitempty"`
	MembershipStatus types.MembershipStatus `gorm:"default:'inactive'" json:"membership_status,omitempty"`
	LoyaltyTier      types.LoyaltyTier      `gorm:"default:'bronze'" json:"loyalty_tier,omitempty"`
	Metadata         *types.JSONB           `gorm:"type:jsonb" json:"-"`

	Bookings []Booking `gorm:"foreignKey:guest_id" json:"bookings,omitempty"`
	Listings []Listing `gorm:"foreignKey:host_id" json:"listings,omitempty"`

	types.Timestamps
}
