package common

import (
	"errors"
	"log"
	"time"

	"homestay/src/db"
	"homestay/src/models"
	"homestay/src/policy"
	"homestay/src/types"

	"gorm.io/gorm"
)

var policyTables = policy.DefaultTables()

// SetPolicyTables replaces the injected policy lookup. Intended for tests
// and for deployments that load tiers from configuration.
func SetPolicyTables(t policy.Tables) {
	policyTables = t
}

func GetPolicyTables() policy.Tables {
	return policyTables
}

// statusTransitions is the authorization table for direct status changes.
// Guests never change status directly; they go through reschedule/cancel.
var statusTransitions = map[types.Role]map[types.BookingStatus][]types.BookingStatus{
	types.ROLE_HOST: {
		types.BOOKING_PENDING:   {types.BOOKING_CANCELLED},
		types.BOOKING_CONFIRMED: {types.BOOKING_CANCELLED},
	},
	types.ROLE_ADMIN: {
		types.BOOKING_PENDING:   {types.BOOKING_CONFIRMED, types.BOOKING_CANCELLED},
		types.BOOKING_CONFIRMED: {types.BOOKING_PENDING, types.BOOKING_CANCELLED, types.BOOKING_COMPLETED},
		types.BOOKING_CANCELLED: {types.BOOKING_PENDING, types.BOOKING_CONFIRMED},
	},
}

var statusLabels = map[types.BookingStatus]string{
	types.BOOKING_PENDING:   "Chờ xác nhận",
	types.BOOKING_CONFIRMED: "Đã xác nhận",
	types.BOOKING_CANCELLED: "Đã hủy",
	types.BOOKING_COMPLETED: "Hoàn thành",
}

func StatusLabel(s types.BookingStatus) string {
	return statusLabels[s]
}

// CanTransition reports whether the role may move a booking from one status
// to the target.
func CanTransition(role types.Role, from, to types.BookingStatus) bool {
	allowed, ok := statusTransitions[role]
	if !ok {
		return false
	}
	for _, target := range allowed[from] {
		if target == to {
			return true
		}
	}
	return false
}

type TransitionParams struct {
	BookingID     uint
	Target        types.BookingStatus
	Actor         types.Actor
	PaymentStatus *types.PaymentStatus
	PaymentNotes  *string
}

type TransitionResult struct {
	Booking     models.Booking
	StatusLabel string
}

// statusSideEffects builds the column updates for a status change. Every
// timestamp and audit field is owned here so the invariant (at most one of
// confirmedAt/cancelledAt/completedAt reflects the current status) holds in
// a single place.
func statusSideEffects(target types.BookingStatus, actor types.Actor, now time.Time) map[string]any {
	updates := map[string]any{"status": target}
	switch target {
	case types.BOOKING_CONFIRMED:
		updates["confirmed_at"] = now
		updates["cancelled_at"] = nil
		updates["cancelled_by"] = nil
		updates["cancellation_reason"] = nil
	case types.BOOKING_COMPLETED:
		updates["completed_at"] = now
	case types.BOOKING_PENDING:
		updates["confirmed_at"] = nil
		updates["cancelled_at"] = nil
		updates["completed_at"] = nil
		updates["cancelled_by"] = nil
		updates["cancellation_reason"] = nil
	case types.BOOKING_CANCELLED:
		updates["cancelled_at"] = now
		updates["cancelled_by"] = actor.ID
		updates["confirmed_at"] = nil
		updates["completed_at"] = nil
	}
	return updates
}

// paymentSideEffects builds the payment-axis column updates. Returned
// separately from the status updates so the degradation retry can drop them.
func paymentSideEffects(ps types.PaymentStatus, actor types.Actor, notes *string, now time.Time) map[string]any {
	updates := map[string]any{"payment_status": ps}
	if ps == types.PAYMENT_COMPLETED {
		updates["payment_confirmed_at"] = now
		updates["payment_confirmed_by"] = actor.ID
	} else {
		updates["payment_confirmed_at"] = nil
		updates["payment_confirmed_by"] = nil
	}
	if notes != nil {
		updates["payment_notes"] = *notes
	}
	return updates
}

// TransitionBookingStatus validates and applies a status change requested by
// a host or an admin. The status write is the primary guarantee; payment
// bookkeeping is retried without payment fields if the store rejects them,
// and notifications/settlement are committed as outbox rows.
func TransitionBookingStatus(params TransitionParams) (*TransitionResult, error) {
	actor := params.Actor
	if actor.Role != types.ROLE_HOST && actor.Role != types.ROLE_ADMIN {
		return nil, opErr(KindForbidden, "Bạn không có quyền thay đổi trạng thái đơn đặt phòng")
	}
	if (params.PaymentStatus != nil || params.PaymentNotes != nil) && actor.Role != types.ROLE_ADMIN {
		return nil, opErr(KindForbidden, "Chỉ quản trị viên mới được cập nhật trạng thái thanh toán")
	}

	now := time.Now().UTC()
	var booking models.Booking
	var settle bool
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: params.BookingID}).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return opErr(KindNotFound, "Không tìm thấy đơn đặt phòng")
			}
			return internalErr(err)
		}
		if actor.Role == types.ROLE_HOST && booking.HostID != actor.ID {
			return opErr(KindForbidden, "Bạn không phải chủ nhà của đơn đặt phòng này")
		}

		paymentChange := params.PaymentStatus != nil || params.PaymentNotes != nil
		if params.Target == booking.Status && !paymentChange {
			// no-op: return the record unchanged
			return nil
		}

		var updates map[string]any
		statusChanged := params.Target != booking.Status
		if statusChanged {
			if booking.Status == types.BOOKING_COMPLETED {
				return opErr(KindAlreadyTerminal, "Đơn đặt phòng đã hoàn thành, không thể thay đổi trạng thái")
			}
			if !CanTransition(actor.Role, booking.Status, params.Target) {
				return opErr(KindInvalidTransition, "Không thể chuyển trạng thái từ %s sang %s", statusLabels[booking.Status], statusLabels[params.Target])
			}
			updates = statusSideEffects(params.Target, actor, now)
		} else {
			updates = map[string]any{}
		}

		paymentStatus := params.PaymentStatus
		if paymentStatus == nil && statusChanged && actor.Role == types.ROLE_ADMIN {
			// admin confirmation implies the payment went through; moving
			// back to pending resets the payment axis with it
			switch params.Target {
			case types.BOOKING_CONFIRMED:
				ps := types.PAYMENT_COMPLETED
				paymentStatus = &ps
			case types.BOOKING_PENDING:
				ps := types.PAYMENT_PENDING
				paymentStatus = &ps
			}
		}
		var paymentUpdates map[string]any
		if paymentStatus != nil {
			paymentUpdates = paymentSideEffects(*paymentStatus, actor, params.PaymentNotes, now)
		}

		full := map[string]any{}
		for k, v := range updates {
			full[k] = v
		}
		for k, v := range paymentUpdates {
			full[k] = v
		}
		if len(paymentUpdates) > 0 && statusChanged {
			// the status transition is the primary guarantee. The combined
			// write runs under a savepoint: postgres aborts the whole
			// transaction after a failed statement, so rolling back to the
			// savepoint is what lets the status-only retry proceed.
			if err := tx.SavePoint("payment_write").Error; err != nil {
				return internalErr(err)
			}
			if err := tx.
				Model(&models.Booking{}).
				Where("id = ?", booking.ID).
				Updates(full).
				Error; err != nil {
				log.Printf("Payment fields rejected for booking %d, retrying status-only update: %s\n", booking.ID, err.Error())
				if err := tx.RollbackTo("payment_write").Error; err != nil {
					return internalErr(err)
				}
				if err := tx.
					Model(&models.Booking{}).
					Where("id = ?", booking.ID).
					Updates(updates).
					Error; err != nil {
					return internalErr(err)
				}
			}
		} else if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(full).
			Error; err != nil {
			return internalErr(err)
		}

		if statusChanged {
			if err := enqueueTransitionEffects(tx, &booking, params.Target, actor); err != nil {
				return internalErr(err)
			}
			settle = params.Target == types.BOOKING_COMPLETED
		}

		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			First(&booking).
			Error; err != nil {
			return internalErr(err)
		}
		return nil
	})
	if err != nil {
		var oe *OpError
		if errors.As(err, &oe) {
			return nil, oe
		}
		return nil, internalErr(err)
	}

	if settle {
		// runs after the status write commits; failure is retried by the
		// outbox worker, never rolled back into the transition
		go SettleCompletedBooking(booking.ID)
	}
	go DrainOutboxOnce()

	return &TransitionResult{Booking: booking, StatusLabel: statusLabels[booking.Status]}, nil
}

// enqueueTransitionEffects appends the notification and settlement outbox
// rows for a committed transition inside the same transaction.
func enqueueTransitionEffects(tx *gorm.DB, booking *models.Booking, target types.BookingStatus, actor types.Actor) error {
	return EnqueueOutbox(tx, transitionOutboxRows(booking, target, actor))
}
