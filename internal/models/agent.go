package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent moderation statuses
const (
	AgentStatusPending  = "pending"
	AgentStatusApproved = "approved"
	AgentStatusRejected = "rejected"
)

// Agent categories
const (
	CategoryTextGeneration  = "text-generation"
	CategoryImageGeneration = "image-generation"
	CategoryDataAnalysis    = "data-analysis"
	CategoryConversational  = "conversational-ai"
	CategoryCodeGeneration  = "code-generation"
	CategoryTranslation     = "translation"
	CategoryOther           = "other"
)

// Pricing models
const (
	PricingFree         = "free"
	PricingPayPerUse    = "pay-per-use"
	PricingSubscription = "subscription"
	PricingCustom       = "custom"
)

// ValidCategory reports whether c is a known agent category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryTextGeneration, CategoryImageGeneration, CategoryDataAnalysis,
		CategoryConversational, CategoryCodeGeneration, CategoryTranslation, CategoryOther:
		return true
	}
	return false
}

// ValidPricingModel reports whether p is a known pricing model.
func ValidPricingModel(p string) bool {
	switch p {
	case PricingFree, PricingPayPerUse, PricingSubscription, PricingCustom:
		return true
	}
	return false
}

// Agent is a listed service offering. Created by a developer, moderated
// by an admin, visible to everyone once approved.
type Agent struct {
	ID           string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string   `gorm:"not null;type:varchar(36);index" json:"user_id"`
	Name         string   `gorm:"not null;type:varchar(255)" json:"name"`
	Description  string   `gorm:"type:text" json:"description"`
	Category     string   `gorm:"not null;type:varchar(50);index" json:"category"`
	InputFormat  string   `gorm:"type:varchar(50)" json:"input_format"`
	OutputFormat string   `gorm:"type:varchar(50)" json:"output_format"`
	PricingModel string   `gorm:"not null;type:varchar(50);default:'free'" json:"pricing_model"`
	HourlyRate   *float64 `json:"hourly_rate"`
	APIEndpoint  *string  `gorm:"type:varchar(500)" json:"api_endpoint"`
	Status       string   `gorm:"not null;type:varchar(50);default:'pending';index" json:"status"`
	AvgRating    float64  `gorm:"not null;default:0" json:"avg_rating"`
	TotalReviews int64    `gorm:"not null;default:0" json:"total_reviews"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Tasks []Task `gorm:"foreignKey:AgentID" json:"tasks,omitempty"`
}

func (Agent) TableName() string {
	return "ai_agents"
}
