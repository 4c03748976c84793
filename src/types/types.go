package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

type PaymentStatus string

const (
	PAYMENT_PENDING    PaymentStatus = "pending"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_COMPLETED  PaymentStatus = "completed"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_REFUNDED   PaymentStatus = "refunded"
)

type TransactionType string

const (
	TRANSACTION_RESCHEDULE_FEE TransactionType = "reschedule_fee"
	TRANSACTION_REFUND         TransactionType = "refund"
	TRANSACTION_PAYOUT         TransactionType = "payout"
)

type TransactionStatus string

const (
	TRANSACTION_PENDING    TransactionStatus = "pending"
	TRANSACTION_PROCESSING TransactionStatus = "processing"
	TRANSACTION_COMPLETED  TransactionStatus = "completed"
	TRANSACTION_CANCELED   TransactionStatus = "canceled"
)

type MembershipStatus string

const (
	MEMBERSHIP_ACTIVE    MembershipStatus = "active"
	MEMBERSHIP_INACTIVE  MembershipStatus = "inactive"
	MEMBERSHIP_SUSPENDED MembershipStatus = "suspended"
)

type LoyaltyTier string

const (
	LOYALTY_BRONZE   LoyaltyTier = "bronze"
	LOYALTY_SILVER   LoyaltyTier = "silver"
	LOYALTY_GOLD     LoyaltyTier = "gold"
	LOYALTY_PLATINUM LoyaltyTier = "platinum"
	LOYALTY_DIAMOND  LoyaltyTier = "diamond"
)

type CancellationTier string

const (
	POLICY_FLEXIBLE     CancellationTier = "flexible"
	POLICY_MODERATE     CancellationTier = "moderate"
	POLICY_STRICT       CancellationTier = "strict"
	POLICY_SUPER_STRICT CancellationTier = "super_strict"
)

type Role string

const (
	ROLE_GUEST Role = "guest"
	ROLE_HOST  Role = "host"
	ROLE_ADMIN Role = "admin"
)

type OutboxStatus string

const (
	OUTBOX_PENDING OutboxStatus = "pending"
	OUTBOX_DONE    OutboxStatus = "done"
	OUTBOX_FAILED  OutboxStatus = "failed"
)

type OutboxKind string

const (
	OUTBOX_NOTIFICATION OutboxKind = "notification"
	OUTBOX_SETTLEMENT   OutboxKind = "settlement"
	OUTBOX_EVENT        OutboxKind = "event"
)

// Actor identifies who requested a lifecycle operation.
type Actor struct {
	ID   uint
	Role Role
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type TransitionStatusRequestBody struct {
	Status        string  `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	PaymentStatus *string `json:"payment_status,omitempty" binding:"omitempty,oneof=pending processing completed failed refunded"`
	PaymentNotes  *string `json:"payment_notes,omitempty"`
}

type RescheduleRequestBody struct {
	CheckIn  string  `json:"check_in" binding:"required,staydate"`
	CheckOut string  `json:"check_out" binding:"required,staydate,afterdate=CheckIn"`
	Reason   *string `json:"reason,omitempty"`
}

type CancelBookingRequestBody struct {
	Reason *string `json:"reason,omitempty"`
}

type NotificationInput struct {
	UserID  uint   `json:"user_id,omitempty"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
	Data    JSONB  `json:"data,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Handler func(payload string)
