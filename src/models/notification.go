package models

import (
	"homestay/src/types"

	"github.com/google/uuid"
)

type Notification struct {
	ID      uuid.UUID    `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID  uint         `json:"user_id,omitempty"`
	Type    string       `json:"type"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Link    string       `json:"link,omitempty"`
	Data    *types.JSONB `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt  *string      `json:"read_at,omitempty"`

	types.Timestamps
}
