package models

import (
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Profile{},
		&Agent{},
		&Task{},
		&TaskRevision{},
		&TaskReview{},
		&PaymentLog{},
		&Attachment{},
		&TaskMetric{},
		&AuditEvent{},
	)
}
