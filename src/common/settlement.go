package common

import (
	"errors"
	"fmt"
	"log"

	"homestay/src/db"
	"homestay/src/lib"
	awslib "homestay/src/lib/aws"
	"homestay/src/models"
	"homestay/src/types"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const settlementQueue = "BookingSettlements"

// SettleCompletedBooking publishes a settlement request for a booking that
// just transitioned into completed. The settlement consumer reconciles the
// host payout; publish failure is retried through the outbox.
func SettleCompletedBooking(bookingID uint) error {
	var booking models.Booking
	dbi := db.GetDb()
	if err := dbi.
		Model(&models.Booking{}).
		Where(&models.Booking{ID: bookingID}).
		First(&booking).
		Error; err != nil {
		return err
	}
	if booking.Status != types.BOOKING_COMPLETED {
		return fmt.Errorf("booking [%d] is not completed", bookingID)
	}
	return lib.SNSPublishMessage(settlementQueue, map[string]any{
		"booking_id": booking.ID,
		"host_id":    booking.HostID,
		"amount":     booking.TotalPrice,
		"currency":   booking.Currency,
	})
}

// SettlementConsumer drains the settlement queue and records the host payout
// ledger entry for each completed booking.
func SettlementConsumer() {
	qname := settlementQueue
	log.Printf("%s: Listening for messages...", qname)
	c := awslib.NewSQSConsumer(qname, func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		bookingID := uint(gjson.Get(body, "booking_id").Uint())
		if bookingID == 0 {
			log.Printf("[%s]: Missing booking_id in payload. Aborting", qname)
			return
		}
		if err := recordHostPayout(bookingID); err != nil {
			log.Printf("[%s]: Error settling booking %d: %s\n", qname, bookingID, err.Error())
		}
	})
	c.Listen()
}

func recordHostPayout(bookingID uint) error {
	dbi := db.GetDb()
	return dbi.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: bookingID}).
			First(&booking).
			Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_COMPLETED {
			return errors.New("booking is no longer completed")
		}
		var existing int64
		if err := tx.
			Model(&models.Transaction{}).
			Where("booking_id = ? AND type = ?", bookingID, string(types.TRANSACTION_PAYOUT)).
			Count(&existing).
			Error; err != nil {
			return err
		}
		if existing > 0 {
			// payout already recorded, settlement requests are idempotent
			return nil
		}
		payout := models.Transaction{
			BookingID:   booking.ID,
			UserID:      booking.HostID,
			Type:        types.TRANSACTION_PAYOUT,
			Amount:      booking.TotalPrice,
			Currency:    booking.Currency,
			Status:      types.TRANSACTION_PENDING,
			ReferenceID: fmt.Sprint(booking.ID),
			Description: fmt.Sprintf("Thanh toán cho chủ nhà - đơn #%d", booking.ID),
		}
		return tx.Create(&payout).Error
	})
}
