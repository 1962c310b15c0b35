package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Notification channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelSlack = "slack"
	ChannelNone  = "none"
)

// Output formats
const (
	FormatText  = "text"
	FormatPDF   = "pdf"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatImage = "image"
)

// ValidChannel reports whether c is a known notification channel.
func ValidChannel(c string) bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelSlack, ChannelNone:
		return true
	}
	return false
}

// ValidFormat reports whether f is a known output format.
func ValidFormat(f string) bool {
	switch f {
	case FormatText, FormatPDF, FormatJSON, FormatCSV, FormatImage:
		return true
	}
	return false
}

// Task is a unit of work a user submitted against an agent.
type Task struct {
	ID                  string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID              string  `gorm:"not null;type:varchar(36);index" json:"user_id"`
	AgentID             string  `gorm:"not null;type:varchar(36);index" json:"agent_id"`
	Prompt              string  `gorm:"not null;type:text" json:"prompt"`
	AdditionalInfo      string  `gorm:"type:text" json:"additional_info"`
	AttachmentID        string  `gorm:"type:varchar(36)" json:"attachment_id"`
	Status              string  `gorm:"not null;type:varchar(50);default:'pending';index" json:"status"`
	Result              *string `gorm:"type:text" json:"result"`
	Price               float64 `gorm:"not null;default:0" json:"price"`
	PaymentStatus       string  `gorm:"not null;type:varchar(50);default:'pending'" json:"payment_status"`
	NotificationChannel string  `gorm:"not null;type:varchar(20);default:'none'" json:"notification_channel"`
	OutputFormat        string  `gorm:"not null;type:varchar(20);default:'text'" json:"output_format"`
	RevisionCount       int     `gorm:"not null;default:0" json:"revision_count"`
	MaxRevisions        int     `gorm:"not null;default:0" json:"max_revisions"`
	Feedback            *string `gorm:"type:text" json:"feedback"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Agent     Agent          `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Revisions []TaskRevision `gorm:"foreignKey:TaskID" json:"revisions,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// Terminal reports whether the task status is final.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// TaskRevision archives a superseded result at the moment a revision
// was requested. Rows are immutable once written.
type TaskRevision struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TaskID    string    `gorm:"not null;type:varchar(36);index" json:"task_id"`
	Result    string    `gorm:"type:text" json:"result"`
	Feedback  string    `gorm:"type:text" json:"feedback"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`

	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (TaskRevision) TableName() string {
	return "task_revisions"
}
