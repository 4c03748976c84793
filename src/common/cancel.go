package common

import (
	"errors"
	"fmt"
	"time"

	"homestay/src/db"
	"homestay/src/models"
	"homestay/src/policy"
	"homestay/src/types"

	"gorm.io/gorm"
)

type CancelParams struct {
	BookingID uint
	GuestID   uint
	Reason    *string
}

type CancelResult struct {
	Booking        models.Booking         `json:"booking"`
	RefundPercent  float64                `json:"refund_percent"`
	RefundAmount   float64                `json:"refund_amount"`
	Policy         types.CancellationTier `json:"policy"`
	EnhancedRefund bool                   `json:"enhanced_refund"`
}

// CancelBooking cancels a guest's own booking and records the refund the
// listing's cancellation policy grants at this point in time. The refund
// percentage depends on how far ahead of check-in the guest cancels; platinum
// and diamond members get the enhanced schedule.
func CancelBooking(params CancelParams) (*CancelResult, error) {
	now := time.Now().UTC()

	unlock, acquired := lockBooking(params.BookingID)
	if !acquired {
		return nil, opErr(KindInvalidState, "Đơn đặt phòng đang được xử lý, vui lòng thử lại")
	}
	defer unlock()

	tables := GetPolicyTables()
	var result CancelResult
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		booking, policyTier, enhanced, err := loadForCancellation(tx, params.BookingID, params.GuestID)
		if err != nil {
			return err
		}
		if stayStarted(booking.CheckIn, now) {
			return opErr(KindAlreadyStarted, "Không thể hủy sau ngày nhận phòng")
		}

		pct := tables.RefundPercent(policyTier, enhanced, booking.CheckIn.Sub(now).Hours())
		refundAmount := booking.TotalPrice * pct / 100

		updates := statusSideEffects(types.BOOKING_CANCELLED, types.Actor{ID: params.GuestID, Role: types.ROLE_GUEST}, now)
		if params.Reason != nil {
			updates["cancellation_reason"] = *params.Reason
		}
		if refundAmount > 0 && booking.PaymentStatus == types.PAYMENT_COMPLETED {
			updates["payment_status"] = types.PAYMENT_REFUNDED
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(updates).
			Error; err != nil {
			return internalErr(err)
		}

		if refundAmount > 0 {
			txn := models.Transaction{
				BookingID:   booking.ID,
				UserID:      booking.GuestID,
				Type:        types.TRANSACTION_REFUND,
				Amount:      refundAmount,
				Currency:    booking.Currency,
				Status:      types.TRANSACTION_PENDING,
				ReferenceID: fmt.Sprint(booking.ID),
				Description: fmt.Sprintf("Hoàn tiền %.0f%% do khách hủy - đơn #%d", pct, booking.ID),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return internalErr(err)
			}
		}

		rows := cancellationOutboxRows(booking, pct, refundAmount)
		if err := EnqueueOutbox(tx, rows); err != nil {
			return internalErr(err)
		}

		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			First(booking).
			Error; err != nil {
			return internalErr(err)
		}

		result = CancelResult{
			Booking:        *booking,
			RefundPercent:  pct,
			RefundAmount:   refundAmount,
			Policy:         policyTier,
			EnhancedRefund: enhanced,
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

	go DrainOutboxOnce()
	return &result, nil
}

// PreviewRefund reports what a guest cancellation would refund right now,
// using the same policy table lookup as CancelBooking.
func PreviewRefund(bookingID, guestID uint) (*CancelResult, error) {
	now := time.Now().UTC()
	tables := GetPolicyTables()

	booking, policyTier, enhanced, err := loadForCancellation(db.GetDb(), bookingID, guestID)
	if err != nil {
		return nil, err
	}

	pct := tables.RefundPercent(policyTier, enhanced, booking.CheckIn.Sub(now).Hours())
	return &CancelResult{
		Booking:        *booking,
		RefundPercent:  pct,
		RefundAmount:   booking.TotalPrice * pct / 100,
		Policy:         policyTier,
		EnhancedRefund: enhanced,
	}, nil
}

// loadForCancellation fetches the booking with its listing policy and guest
// membership, enforcing the guest-ownership and non-terminal guards shared by
// the cancel operation and its preview.
func loadForCancellation(tx *gorm.DB, bookingID, guestID uint) (*models.Booking, types.CancellationTier, bool, error) {
	var booking models.Booking
	if err := tx.
		Model(&models.Booking{}).
		Preload("Guest").
		Preload("Listing").
		Where(&models.Booking{ID: bookingID}).
		First(&booking).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", false, opErr(KindNotFound, "Không tìm thấy đơn đặt phòng")
		}
		return nil, "", false, internalErr(err)
	}
	if booking.GuestID != guestID {
		return nil, "", false, opErr(KindForbidden, "Chỉ khách đặt phòng mới được hủy đơn này")
	}
	if booking.Status == types.BOOKING_CANCELLED || booking.Status == types.BOOKING_COMPLETED {
		return nil, "", false, opErr(KindInvalidState, "Đơn đặt phòng đã kết thúc hoặc đã bị hủy")
	}

	policyTier := types.POLICY_MODERATE
	if booking.Listing != nil && booking.Listing.CancellationPolicy != "" {
		policyTier = booking.Listing.CancellationPolicy
	}
	enhanced := false
	if booking.Guest != nil {
		enhanced = GetPolicyTables().HasEnhancedRefund(policy.Membership{
			Status: booking.Guest.MembershipStatus,
			Tier:   booking.Guest.LoyaltyTier,
		})
	}
	return &booking, policyTier, enhanced, nil
}

func cancellationOutboxRows(booking *models.Booking, pct, refundAmount float64) []models.OutboxEvent {
	link := fmt.Sprintf("/bookings/%d", booking.ID)

	guestMsg := fmt.Sprintf("Đơn đặt phòng #%d đã được hủy.", booking.ID)
	if refundAmount > 0 {
		guestMsg += fmt.Sprintf(" Bạn sẽ được hoàn %.0f%% (%.0f %s).", pct, refundAmount, booking.Currency)
	} else {
		guestMsg += " Theo chính sách hủy, đơn này không được hoàn tiền."
	}

	return []models.OutboxEvent{
		notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.GuestID,
			Type:    NOTIFY_BOOKING_CANCELLED,
			Title:   fmt.Sprintf("Đã hủy đơn #%d", booking.ID),
			Message: guestMsg,
			Link:    link,
			Data: types.JSONB{
				"booking_id":     booking.ID,
				"refund_percent": pct,
				"refund_amount":  refundAmount,
			},
		}, false),
		notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.HostID,
			Type:    NOTIFY_BOOKING_CANCELLED,
			Title:   fmt.Sprintf("Khách hủy đơn #%d", booking.ID),
			Message: fmt.Sprintf("Khách đã hủy đơn đặt phòng #%d (nhận phòng %s).", booking.ID, booking.CheckIn.Format("02/01/2006")),
			Link:    link,
			Data:    types.JSONB{"booking_id": booking.ID},
		}, false),
		{
			Kind:      types.OUTBOX_EVENT,
			BookingID: booking.ID,
			Payload: types.JSONB{
				"topic":          "booking-status",
				"booking_id":     booking.ID,
				"status":         string(types.BOOKING_CANCELLED),
				"refund_amount":  refundAmount,
				"refund_percent": pct,
			},
		},
	}
}
