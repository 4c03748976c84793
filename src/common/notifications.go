package common

import (
	"fmt"
	"log"
	"os"

	"homestay/src/db"
	"homestay/src/lib"
	"homestay/src/models"
	"homestay/src/types"

	"gorm.io/gorm"
)

const (
	NOTIFY_BOOKING_CONFIRMED  = "booking_confirmed"
	NOTIFY_BOOKING_CANCELLED  = "booking_cancelled"
	NOTIFY_BOOKING_PENDING    = "booking_pending"
	NOTIFY_BOOKING_COMPLETED  = "booking_completed"
	NOTIFY_REVIEW_REQUEST     = "review_request"
	NOTIFY_BOOKING_RESCHEDULE = "booking_rescheduled"
	NOTIFY_STATUS_CHANGED     = "booking_status_changed"
)

// notifyTypes keys the guest-facing notification type off the status a
// booking just entered.
var notifyTypes = map[types.BookingStatus]string{
	types.BOOKING_PENDING:   NOTIFY_BOOKING_PENDING,
	types.BOOKING_CONFIRMED: NOTIFY_BOOKING_CONFIRMED,
	types.BOOKING_CANCELLED: NOTIFY_BOOKING_CANCELLED,
	types.BOOKING_COMPLETED: NOTIFY_BOOKING_COMPLETED,
}

// Notify persists an in-app notification for a user and pushes it to the
// kafka notifications topic. Both writes are best-effort for callers on the
// outbox path; the worker retries the whole row on failure.
func Notify(input types.NotificationInput) error {
	data := input.Data
	n := models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Title:   input.Title,
		Message: input.Message,
		Link:    input.Link,
	}
	if data != nil {
		n.Data = &data
	}
	dbi := db.GetDb()
	if err := dbi.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&n).Error
	}); err != nil {
		return err
	}
	if err := lib.KafkaProduceMessage("notifications_producer", "notifications", map[string]any{
		"user_id": input.UserID,
		"type":    input.Type,
		"title":   input.Title,
		"message": input.Message,
		"link":    input.Link,
	}); err != nil {
		log.Printf("Error publishing notification for user %d: %s\n", input.UserID, err.Error())
	}
	return nil
}

// NotifyAdmins fans a notification out to every admin user.
func NotifyAdmins(input types.NotificationInput) error {
	dbi := db.GetDb()
	var adminIDs []uint
	if err := dbi.
		Model(&models.User{}).
		Where("role = ?", string(types.ROLE_ADMIN)).
		Pluck("id", &adminIDs).
		Error; err != nil {
		return err
	}
	for _, id := range adminIDs {
		in := input
		in.UserID = id
		if err := Notify(in); err != nil {
			return err
		}
	}
	return nil
}

// NotifyByEmail delivers a notification over SMTP. Used by the outbox worker
// for the email channel; failures surface so the row is retried.
func NotifyByEmail(to string, subject string, body string) error {
	senderFrom := os.Getenv("SMTP_FROM")
	return lib.SendMail(&lib.SendMailInput{
		From:     senderFrom,
		FromName: "Homestay",
		To:       []string{to},
		Subject:  subject,
		Body:     body,
	})
}

func notificationRow(bookingID uint, input types.NotificationInput, admins bool) models.OutboxEvent {
	payload := types.JSONB{
		"user_id": input.UserID,
		"type":    input.Type,
		"title":   input.Title,
		"message": input.Message,
		"link":    input.Link,
		"admins":  admins,
	}
	if input.Data != nil {
		payload["data"] = map[string]any(input.Data)
	}
	return models.OutboxEvent{
		Kind:      types.OUTBOX_NOTIFICATION,
		BookingID: bookingID,
		Payload:   payload,
	}
}

// transitionOutboxRows builds the notification rows for a status change:
// the guest always hears about it, admins are kept in the loop, the host is
// told when an admin acted on their listing, and a completed stay asks the
// guest for a review.
func transitionOutboxRows(booking *models.Booking, target types.BookingStatus, actor types.Actor) []models.OutboxEvent {
	label := statusLabels[target]
	link := fmt.Sprintf("/bookings/%d", booking.ID)
	rows := []models.OutboxEvent{
		notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.GuestID,
			Type:    notifyTypes[target],
			Title:   fmt.Sprintf("Đơn đặt phòng #%d: %s", booking.ID, label),
			Message: fmt.Sprintf("Trạng thái đơn đặt phòng của bạn đã chuyển sang \"%s\"", label),
			Link:    link,
			Data:    types.JSONB{"booking_id": booking.ID, "status": string(target)},
		}, false),
		notificationRow(booking.ID, types.NotificationInput{
			Type:    NOTIFY_STATUS_CHANGED,
			Title:   fmt.Sprintf("Đơn đặt phòng #%d: %s", booking.ID, label),
			Message: fmt.Sprintf("Đơn đặt phòng #%d đã chuyển sang \"%s\"", booking.ID, label),
			Link:    link,
			Data:    types.JSONB{"booking_id": booking.ID, "status": string(target)},
		}, true),
	}
	if actor.Role == types.ROLE_ADMIN {
		rows = append(rows, notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.HostID,
			Type:    NOTIFY_STATUS_CHANGED,
			Title:   fmt.Sprintf("Đơn đặt phòng #%d: %s", booking.ID, label),
			Message: fmt.Sprintf("Quản trị viên đã chuyển đơn đặt phòng #%d sang \"%s\"", booking.ID, label),
			Link:    link,
			Data:    types.JSONB{"booking_id": booking.ID, "status": string(target)},
		}, false))
	}
	if target == types.BOOKING_COMPLETED {
		rows = append(rows, notificationRow(booking.ID, types.NotificationInput{
			UserID:  booking.GuestID,
			Type:    NOTIFY_REVIEW_REQUEST,
			Title:   "Chuyến đi của bạn thế nào?",
			Message: fmt.Sprintf("Hãy để lại đánh giá cho chỗ ở trong đơn đặt phòng #%d", booking.ID),
			Link:    fmt.Sprintf("/bookings/%d/review", booking.ID),
			Data:    types.JSONB{"booking_id": booking.ID},
		}, false))
		rows = append(rows, models.OutboxEvent{
			Kind:      types.OUTBOX_SETTLEMENT,
			BookingID: booking.ID,
			Payload:   types.JSONB{"booking_id": booking.ID, "host_id": booking.HostID},
		})
	}
	rows = append(rows, models.OutboxEvent{
		Kind:      types.OUTBOX_EVENT,
		BookingID: booking.ID,
		Payload: types.JSONB{
			"topic":      "booking-status",
			"booking_id": booking.ID,
			"status":     string(target),
			"actor_id":   actor.ID,
			"actor_role": string(actor.Role),
		},
	})
	return rows
}
