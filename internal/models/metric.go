package models

import (
	"time"
)

// TaskMetric records one processing run: wall-clock duration and outcome.
// Observability only; nothing reads these rows on the request path.
type TaskMetric struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TaskID     string    `gorm:"not null;type:varchar(36);index" json:"task_id"`
	DurationMS int64     `gorm:"not null" json:"duration_ms"`
	Outcome    string    `gorm:"not null;type:varchar(20)" json:"outcome"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (TaskMetric) TableName() string {
	return "task_metrics"
}

// AuditEvent records a security-relevant occurrence such as receipt of a
// processing request.
type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"not null;type:varchar(50);index" json:"event_type"`
	TaskID    string    `gorm:"type:varchar(36);index" json:"task_id"`
	UserID    string    `gorm:"type:varchar(36)" json:"user_id"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
