package boot

import (
	"log"
	"time"

	"homestay/src/common"
	"homestay/src/db"
	"homestay/src/lib"
	"homestay/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.BlockedDate{},
		&models.Booking{},
		&models.Transaction{},
		&models.Notification{},
		&models.OutboxEvent{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the cron scheduler and the outbox drain loop on it.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	common.StartOutboxWorker(30 * time.Second)
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

// InitBroker wires the kafka topics the outbox publishes to and the SQS
// consumer that settles completed bookings.
func InitBroker() {
	go lib.KafkaCreateTopics("booking-status", "booking-reschedule", "notifications")
	lib.KafkaConsumer("homestay-api", "booking-status", "booking-reschedule", "notifications")
	go common.SettlementConsumer()
}
