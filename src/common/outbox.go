package common

import (
	"fmt"
	"log"
	"time"

	"homestay/src/db"
	"homestay/src/lib"
	"homestay/src/models"
	"homestay/src/types"

	"gorm.io/gorm"
)

const outboxMaxAttempts = 5

// StartOutboxWorker schedules the periodic outbox drain. Rows are retried
// until they deliver or exhaust their attempts.
func StartOutboxWorker(interval time.Duration) {
	id, err := lib.CreateCronJob(DrainOutboxOnce, interval)
	if err != nil {
		log.Printf("Error scheduling outbox worker: %s\n", err.Error())
		return
	}
	log.Printf("Outbox worker scheduled: %s\n", *id)
}

// DrainOutboxOnce delivers every pending outbox row. Each row is delivered
// at least once; delivery failures bump the attempt counter and the row is
// picked up again on the next pass.
func DrainOutboxOnce() {
	dbi := db.GetDb()
	var rows []models.OutboxEvent
	err := dbi.
		Model(&models.OutboxEvent{}).
		Where("status = ?", string(types.OUTBOX_PENDING)).
		Order("created_at asc").
		Limit(100).
		Find(&rows).
		Error
	if err != nil {
		log.Printf("Error retrieving outbox rows: %s\n", err.Error())
		return
	}
	for i := range rows {
		row := &rows[i]
		if err := deliverOutboxRow(row); err != nil {
			log.Printf("Outbox delivery failed [%s] attempt %d: %s\n", row.ID.String(), row.Attempts+1, err.Error())
			markOutboxFailure(row, err)
			continue
		}
		markOutboxDone(row)
	}
}

func deliverOutboxRow(row *models.OutboxEvent) error {
	switch row.Kind {
	case types.OUTBOX_NOTIFICATION:
		return deliverNotificationRow(row)
	case types.OUTBOX_SETTLEMENT:
		return SettleCompletedBooking(row.BookingID)
	case types.OUTBOX_EVENT:
		topic, _ := row.Payload["topic"].(string)
		if topic == "" {
			topic = "booking-status"
		}
		return lib.KafkaProduceMessage("booking_events_producer", topic, row.Payload)
	default:
		return fmt.Errorf("unknown outbox kind %q", row.Kind)
	}
}

func deliverNotificationRow(row *models.OutboxEvent) error {
	input := types.NotificationInput{
		Type:    stringField(row.Payload, "type"),
		Title:   stringField(row.Payload, "title"),
		Message: stringField(row.Payload, "message"),
		Link:    stringField(row.Payload, "link"),
	}
	if data, ok := row.Payload["data"].(map[string]any); ok {
		input.Data = types.JSONB(data)
	}
	if admins, _ := row.Payload["admins"].(bool); admins {
		return NotifyAdmins(input)
	}
	input.UserID = uintField(row.Payload, "user_id")
	if err := Notify(input); err != nil {
		return err
	}
	// best-effort email copy; in-app delivery above is the contract
	var user models.User
	dbi := db.GetDb()
	if err := dbi.
		Model(&models.User{}).
		Where(&models.User{ID: input.UserID}).
		First(&user).
		Error; err == nil && user.Email != "" {
		if err := NotifyByEmail(user.Email, input.Title, input.Message); err != nil {
			log.Printf("Error sending email to %s: %s\n", user.Email, err.Error())
		}
	}
	return nil
}

func markOutboxDone(row *models.OutboxEvent) {
	now := time.Now().UTC()
	dbi := db.GetDb()
	err := dbi.
		Model(&models.OutboxEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":   types.OUTBOX_DONE,
			"attempts": row.Attempts + 1,
			"done_at":  now,
		}).
		Error
	if err != nil {
		log.Printf("Error marking outbox row done: %s\n", err.Error())
	}
}

func markOutboxFailure(row *models.OutboxEvent, cause error) {
	status := types.OUTBOX_PENDING
	if row.Attempts+1 >= outboxMaxAttempts {
		status = types.OUTBOX_FAILED
	}
	msg := cause.Error()
	dbi := db.GetDb()
	err := dbi.
		Model(&models.OutboxEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":     status,
			"attempts":   row.Attempts + 1,
			"last_error": msg,
		}).
		Error
	if err != nil {
		log.Printf("Error marking outbox row failed: %s\n", err.Error())
	}
}

// EnqueueOutbox appends rows inside the caller's transaction so side effects
// commit atomically with the primary write.
func EnqueueOutbox(tx *gorm.DB, rows []models.OutboxEvent) error {
	for i := range rows {
		if err := tx.Create(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func stringField(payload types.JSONB, key string) string {
	s, _ := payload[key].(string)
	return s
}

func uintField(payload types.JSONB, key string) uint {
	switch v := payload[key].(type) {
	case float64:
		return uint(v)
	case int:
		return uint(v)
	case uint:
		return v
	default:
		return 0
	}
}
