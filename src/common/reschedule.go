package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"homestay/src/db"
	"homestay/src/lib"
	"homestay/src/models"
	"homestay/src/policy"
	"homestay/src/types"

	"gorm.io/gorm"
)

type RescheduleParams struct {
	BookingID   uint
	GuestID     uint
	NewCheckIn  time.Time
	NewCheckOut time.Time
	Reason      *string
}

type RescheduleResult struct {
	Booking         models.Booking `json:"booking"`
	RescheduleFee   float64        `json:"reschedule_fee"`
	PriceDifference float64        `json:"price_difference"`
	AmountToPay     float64        `json:"amount_to_pay"`
	RefundAmount    float64        `json:"refund_amount"`
	IsUpgrade       bool           `json:"is_upgrade"`
	IsDowngrade     bool           `json:"is_downgrade"`
	OldNights       int            `json:"old_nights"`
	NewNights       int            `json:"new_nights"`
	OldTotalPrice   float64        `json:"old_total_price"`
	NewTotalPrice   float64        `json:"new_total_price"`
	FreeReschedule  bool           `json:"free_reschedule"`
	RequiresPayment bool           `json:"requires_payment"`
}

// stayStarted reports whether the stay's check-in day has begun. The
// comparison is date-granular: on the check-in day itself the stay has not
// started yet, matching the past-date guard on new ranges.
func stayStarted(checkIn, now time.Time) bool {
	return checkIn.Before(now.Truncate(24 * time.Hour))
}

// appendRescheduleHistory appends one entry to the booking's append-only
// reschedule trail inside its metadata document. Existing entries are never
// rewritten.
func appendRescheduleHistory(metadata types.JSONB, entry map[string]any) types.JSONB {
	if metadata == nil {
		metadata = types.JSONB{}
	}
	history, _ := metadata["reschedule_history"].([]any)
	metadata["reschedule_history"] = append(history, entry)
	return metadata
}

// lockBooking takes a short-lived redis lock so two concurrent reschedule or
// cancel submissions for the same booking don't interleave. Best-effort: a
// missing redis client falls through to last-write-wins at the store.
func lockBooking(bookingID uint) (func(), bool) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return func() {}, true
	}
	key := fmt.Sprintf("booking:%d:op", bookingID)
	ok, err := rd.SetNX(context.Background(), key, "1", 10*time.Second).Result()
	if err != nil {
		log.Printf("Error acquiring lock for booking %d: %s\n", bookingID, err.Error())
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		rd.Del(context.Background(), key)
	}, true
}

// RescheduleBooking moves a guest's stay to a new date range, repricing the
// booking and charging the tiered reschedule fee unless the guest's loyalty
// membership waives it. All record changes and ledger entries commit in one
// transaction; notifications go through the outbox afterwards.
func RescheduleBooking(params RescheduleParams) (*RescheduleResult, error) {
	now := time.Now().UTC()
	if !params.NewCheckIn.Before(params.NewCheckOut) {
		return nil, opErr(KindInvalidDateRange, "Ngày trả phòng phải sau ngày nhận phòng")
	}
	if params.NewCheckIn.Before(now.Truncate(24 * time.Hour)) {
		return nil, opErr(KindInvalidDateRange, "Ngày nhận phòng không được ở quá khứ")
	}

	unlock, acquired := lockBooking(params.BookingID)
	if !acquired {
		return nil, opErr(KindInvalidState, "Đơn đặt phòng đang được xử lý, vui lòng thử lại")
	}
	defer unlock()

	tables := GetPolicyTables()
	var result RescheduleResult
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Preload("Guest").
			Where(&models.Booking{ID: params.BookingID}).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return opErr(KindNotFound, "Không tìm thấy đơn đặt phòng")
			}
			return internalErr(err)
		}
		if booking.GuestID != params.GuestID {
			return opErr(KindForbidden, "Chỉ khách đặt phòng mới được đổi lịch")
		}
		if booking.Status == types.BOOKING_CANCELLED || booking.Status == types.BOOKING_COMPLETED {
			return opErr(KindInvalidState, "Đơn đặt phòng đã kết thúc hoặc đã bị hủy")
		}
		if stayStarted(booking.CheckIn, now) {
			return opErr(KindAlreadyStarted, "Không thể đổi lịch sau ngày nhận phòng")
		}

		if err := checkDateAvailability(tx, &booking, params.NewCheckIn, params.NewCheckOut); err != nil {
			return err
		}

		quote := policy.Recalculate(policy.StaySnapshot{
			CheckIn:                 booking.CheckIn,
			CheckOut:                booking.CheckOut,
			Nights:                  booking.Nights,
			BasePrice:               booking.BasePrice,
			CleaningFee:             booking.CleaningFee,
			AdditionalServicesTotal: booking.AdditionalServicesTotal,
			TotalPrice:              booking.TotalPrice,
		}, params.NewCheckIn, params.NewCheckOut)

		hoursUntilCheckIn := booking.CheckIn.Sub(now).Hours()
		membership := policy.Membership{}
		if booking.Guest != nil {
			membership = policy.Membership{
				Status: booking.Guest.MembershipStatus,
				Tier:   booking.Guest.LoyaltyTier,
			}
		}
		fee, waived := tables.RescheduleFee(membership, hoursUntilCheckIn, booking.TotalPrice)
		amountToPay, refundAmount := policy.SettlementAmounts(quote, fee)
		newTotalPrice := quote.NewTotalBeforeFees + fee

		historyEntry := map[string]any{
			"old_check_in":     booking.CheckIn.Format("2006-01-02"),
			"old_check_out":    booking.CheckOut.Format("2006-01-02"),
			"new_check_in":     params.NewCheckIn.Format("2006-01-02"),
			"new_check_out":    params.NewCheckOut.Format("2006-01-02"),
			"old_total_price":  booking.TotalPrice,
			"new_total_price":  newTotalPrice,
			"reschedule_fee":   fee,
			"price_difference": quote.PriceDifference,
			"refund_amount":    refundAmount,
			"amount_to_pay":    amountToPay,
			"timestamp":        now.Format(time.RFC3339),
		}
		if params.Reason != nil {
			historyEntry["reason"] = *params.Reason
		}
		metadata := appendRescheduleHistory(booking.Metadata, historyEntry)

		oldTotal := booking.TotalPrice
		updates := map[string]any{
			"check_in":    params.NewCheckIn,
			"check_out":   params.NewCheckOut,
			"nights":      quote.NewNights,
			"base_price":  quote.NewSubtotal,
			"service_fee": quote.NewServiceFee,
			"total_price": newTotalPrice,
			"metadata":    metadata,
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(updates).
			Error; err != nil {
			return internalErr(err)
		}

		if amountToPay > 0 {
			txn := models.Transaction{
				BookingID:   booking.ID,
				UserID:      booking.GuestID,
				Type:        types.TRANSACTION_RESCHEDULE_FEE,
				Amount:      amountToPay,
				Currency:    booking.Currency,
				Status:      types.TRANSACTION_PENDING,
				ReferenceID: fmt.Sprint(booking.ID),
				Description: fmt.Sprintf("Phí đổi lịch và chênh lệch giá - đơn #%d", booking.ID),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return internalErr(err)
			}
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
				Description: fmt.Sprintf("Hoàn tiền do đổi lịch - đơn #%d", booking.ID),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return internalErr(err)
			}
		}

		rows := rescheduleOutboxRows(&booking, params, quote.PriceDifference, fee, amountToPay, refundAmount, waived)
		if err := EnqueueOutbox(tx, rows); err != nil {
			return internalErr(err)
		}

		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			First(&booking).
			Error; err != nil {
			return internalErr(err)
		}

		result = RescheduleResult{
			Booking:         booking,
			RescheduleFee:   fee,
			PriceDifference: quote.PriceDifference,
			AmountToPay:     amountToPay,
			RefundAmount:    refundAmount,
			IsUpgrade:       quote.IsUpgrade,
			IsDowngrade:     quote.IsDowngrade,
			OldNights:       quote.OldNights,
			NewNights:       quote.NewNights,
			OldTotalPrice:   oldTotal,
			NewTotalPrice:   newTotalPrice,
			FreeReschedule:  waived,
			RequiresPayment: amountToPay > 0,
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

// checkDateAvailability rejects ranges colliding with other confirmed or
// completed stays on the listing, or with host-blocked dates. Inclusive
// overlap on both bounds.
func checkDateAvailability(tx *gorm.DB, booking *models.Booking, checkIn, checkOut time.Time) error {
	var conflicts int64
	if err := tx.
		Model(&models.Booking{}).
		Where("listing_id = ? AND id <> ?", booking.ListingID, booking.ID).
		Where("status IN (?)", []string{string(types.BOOKING_CONFIRMED), string(types.BOOKING_COMPLETED)}).
		Where("check_in <= ? AND check_out >= ?", checkOut, checkIn).
		Count(&conflicts).
		Error; err != nil {
		return internalErr(err)
	}
	if conflicts > 0 {
		return opErr(KindDateConflict, "Khoảng ngày mới trùng với một đơn đặt phòng khác")
	}
	var blocked int64
	if err := tx.
		Model(&models.BlockedDate{}).
		Where("listing_id = ?", booking.ListingID).
		Where("start_date <= ? AND end_date >= ?", checkOut, checkIn).
		Count(&blocked).
		Error; err != nil {
		return internalErr(err)
	}
	if blocked > 0 {
		return opErr(KindDateBlocked, "Chủ nhà đã khóa một phần khoảng ngày này")
	}
	return nil
}

func rescheduleOutboxRows(booking *models.Booking, params RescheduleParams, priceDifference, fee, amountToPay, refundAmount float64, waived bool) []models.OutboxEvent {
	link := fmt.Sprintf("/bookings/%d", booking.ID)
	dates := fmt.Sprintf("%s → %s", params.NewCheckIn.Format("02/01/2006"), params.NewCheckOut.Format("02/01/2006"))

	guestMsg := fmt.Sprintf("Đơn đặt phòng #%d đã được đổi sang %s.", booking.ID, dates)
	if amountToPay > 0 {
		guestMsg += fmt.Sprintf(" Số tiền cần thanh toán thêm: %.0f %s.", amountToPay, booking.Currency)
	}
	if refundAmount > 0 {
		guestMsg += fmt.Sprintf(" Số tiền được hoàn lại: %.0f %s.", refundAmount, booking.Currency)
	}
	if waived {
		guestMsg += " Phí đổi lịch được miễn nhờ hạng thành viên của bạn."
	}

	return []models.OutboxEvent{
		notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.GuestID,
			Type:    NOTIFY_BOOKING_RESCHEDULE,
			Title:   fmt.Sprintf("Đổi lịch thành công - đơn #%d", booking.ID),
			Message: guestMsg,
			Link:    link,
			Data: types.JSONB{
				"booking_id":     booking.ID,
				"amount_to_pay":  amountToPay,
				"refund_amount":  refundAmount,
				"reschedule_fee": fee,
			},
		}, false),
		notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.HostID,
			Type:    NOTIFY_BOOKING_RESCHEDULE,
			Title:   fmt.Sprintf("Khách đổi lịch - đơn #%d", booking.ID),
			Message: fmt.Sprintf("Khách đã đổi đơn đặt phòng #%d sang %s. Chênh lệch giá: %.0f %s.", booking.ID, dates, priceDifference, booking.Currency),
			Link:    link,
			Data: types.JSONB{
				"booking_id":       booking.ID,
				"price_difference": priceDifference,
			},
		}, false),
		{
			Kind:      types.OUTBOX_EVENT,
			BookingID: booking.ID,
			Payload: types.JSONB{
				"topic":            "booking-reschedule",
				"booking_id":       booking.ID,
				"check_in":         params.NewCheckIn.Format("2006-01-02"),
				"check_out":        params.NewCheckOut.Format("2006-01-02"),
				"reschedule_fee":   fee,
				"price_difference": priceDifference,
			},
		},
	}
}

// previewCacheKey identifies a quote by booking and target range. The short
// TTL bounds how stale the hours-until-checkin fee tier can get.
func previewCacheKey(params RescheduleParams) string {
	return fmt.Sprintf("booking:%d:quote:%s:%s",
		params.BookingID,
		params.NewCheckIn.Format("2006-01-02"),
		params.NewCheckOut.Format("2006-01-02"))
}

// PreviewReschedule computes the quote a reschedule would produce without
// touching the record. Shares the exact policy functions with
// RescheduleBooking so preview and authority cannot diverge. Quotes are
// cached in redis for a minute to absorb date-picker traffic.
func PreviewReschedule(params RescheduleParams) (*RescheduleResult, error) {
	now := time.Now().UTC()
	if !params.NewCheckIn.Before(params.NewCheckOut) {
		return nil, opErr(KindInvalidDateRange, "Ngày trả phòng phải sau ngày nhận phòng")
	}
	if params.NewCheckIn.Before(now.Truncate(24 * time.Hour)) {
		return nil, opErr(KindInvalidDateRange, "Ngày nhận phòng không được ở quá khứ")
	}

	tables := GetPolicyTables()
	var booking models.Booking
	dbi := db.GetDb()
	if err := dbi.
		Model(&models.Booking{}).
		Preload("Guest").
		Where(&models.Booking{ID: params.BookingID}).
		First(&booking).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, opErr(KindNotFound, "Không tìm thấy đơn đặt phòng")
		}
		return nil, internalErr(err)
	}
	if booking.GuestID != params.GuestID {
		return nil, opErr(KindForbidden, "Chỉ khách đặt phòng mới được xem trước đổi lịch")
	}

	cacheKey := previewCacheKey(params)
	if rd := lib.GetRedisClient(); rd != nil {
		if cached, err := rd.Get(context.Background(), cacheKey).Result(); err == nil {
			var result RescheduleResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return &result, nil
			}
		}
	}

	quote := policy.Recalculate(policy.StaySnapshot{
		CheckIn:                 booking.CheckIn,
		CheckOut:                booking.CheckOut,
		Nights:                  booking.Nights,
		BasePrice:               booking.BasePrice,
		CleaningFee:             booking.CleaningFee,
		AdditionalServicesTotal: booking.AdditionalServicesTotal,
		TotalPrice:              booking.TotalPrice,
	}, params.NewCheckIn, params.NewCheckOut)

	membership := policy.Membership{}
	if booking.Guest != nil {
		membership = policy.Membership{
			Status: booking.Guest.MembershipStatus,
			Tier:   booking.Guest.LoyaltyTier,
		}
	}
	fee, waived := tables.RescheduleFee(membership, booking.CheckIn.Sub(now).Hours(), booking.TotalPrice)
	amountToPay, refundAmount := policy.SettlementAmounts(quote, fee)

	result := &RescheduleResult{
		Booking:         booking,
		RescheduleFee:   fee,
		PriceDifference: quote.PriceDifference,
		AmountToPay:     amountToPay,
		RefundAmount:    refundAmount,
		IsUpgrade:       quote.IsUpgrade,
		IsDowngrade:     quote.IsDowngrade,
		OldNights:       quote.OldNights,
		NewNights:       quote.NewNights,
		OldTotalPrice:   booking.TotalPrice,
		NewTotalPrice:   quote.NewTotalBeforeFees + fee,
		FreeReschedule:  waived,
		RequiresPayment: amountToPay > 0,
	}
	if rd := lib.GetRedisClient(); rd != nil {
		if raw, err := json.Marshal(result); err == nil {
			rd.Set(context.Background(), cacheKey, raw, time.Minute)
		}
	}
	return result, nil
}
