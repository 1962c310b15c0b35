package models

import (
	"time"
)

// PaymentLog is an append-only payment audit entry. Rows are never
// updated after creation and are not consulted for authorization.
type PaymentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID string    `gorm:"not null;type:varchar(64);index" json:"payment_id"`
	TaskID    string    `gorm:"type:varchar(36);index" json:"task_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Status    string    `gorm:"not null;type:varchar(20)" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}

// Attachment is a stored file referenced by a task submission.
type Attachment struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"not null;type:varchar(500)" json:"name"`
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"type:varchar(255)" json:"content_type"`
	Hash        string    `gorm:"type:varchar(64);index" json:"hash"`
	UploadedBy  string    `gorm:"type:varchar(36)" json:"uploaded_by"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
