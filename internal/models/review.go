package models

import (
	"time"
)

// TaskReview is a buyer's rating of a completed task. At most one row
// exists per task; resubmitting updates the existing row in place.
type TaskReview struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TaskID     string    `gorm:"uniqueIndex;not null;type:varchar(36)" json:"task_id"`
	UserID     string    `gorm:"not null;type:varchar(36);index" json:"user_id"`
	AgentID    string    `gorm:"not null;type:varchar(36);index" json:"agent_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	ReviewText *string   `gorm:"type:text" json:"review_text"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (TaskReview) TableName() string {
	return "task_reviews"
}
