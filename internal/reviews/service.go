package reviews

import (
	"context"
	"errors"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service owns review capture and the denormalized agent rating fields.
type Service struct {
	db  *gorm.DB
	hub *events.Hub
	log *logrus.Entry
}

// NewService creates a new review service
func NewService(db *gorm.DB, hub *events.Hub) *Service {
	return &Service{
		db:  db,
		hub: hub,
		log: logrus.WithField("component", "reviews"),
	}
}

// SubmitInput carries a review submission.
type SubmitInput struct {
	TaskID     string  `json:"task_id"`
	Rating     int     `json:"rating"`
	ReviewText *string `json:"review_text"`
}

// Submit upserts the review for a task: at most one row per task, the
// latest submission wins. The task must belong to the caller and be
// completed.
func (s *Service) Submit(ctx context.Context, caller auth.Context, in SubmitInput) (*models.TaskReview, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}

	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", in.TaskID, caller.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("task not found: %s", in.TaskID)
		}
		return nil, errs.Dependency("failed to load task", err)
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, errs.Validation("only completed tasks can be reviewed")
	}

	now := time.Now()
	var review models.TaskReview

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.First(&review, "task_id = ?", in.TaskID).Error
		switch {
		case findErr == nil:
			review.Rating = in.Rating
			review.ReviewText = in.ReviewText
			review.UpdatedAt = now
			if err := tx.Save(&review).Error; err != nil {
				return errs.Dependency("failed to update review", err)
			}
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			review = models.TaskReview{
				ID:         uuid.New().String(),
				TaskID:     in.TaskID,
				UserID:     caller.UserID,
				AgentID:    task.AgentID,
				Rating:     in.Rating,
				ReviewText: in.ReviewText,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&review).Error; err != nil {
				return errs.Dependency("failed to create review", err)
			}
		default:
			return errs.Dependency("failed to load review", findErr)
		}

		return refreshAgentRating(tx, task.AgentID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.Event{TaskID: in.TaskID, Type: events.TypeReview, Task: &review})

	return &review, nil
}

// GetByTaskID returns the review for a task, owner-scoped.
func (s *Service) GetByTaskID(ctx context.Context, caller auth.Context, taskID string) (*models.TaskReview, error) {
	var review models.TaskReview
	err := s.db.WithContext(ctx).
		First(&review, "task_id = ? AND user_id = ?", taskID, caller.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("review not found for task %s", taskID)
		}
		return nil, errs.Dependency("failed to load review", err)
	}
	return &review, nil
}

// ListByAgent returns reviews for an agent, newest first.
func (s *Service) ListByAgent(ctx context.Context, agentID string, limit int) ([]models.TaskReview, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var out []models.TaskReview
	if err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list reviews", err)
	}
	return out, nil
}

// refreshAgentRating recomputes the agent's avg_rating and total_reviews
// from the review rows.
func refreshAgentRating(tx *gorm.DB, agentID string) error {
	var stats struct {
		Avg   float64
		Count int64
	}
	err := tx.Model(&models.TaskReview{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("agent_id = ?", agentID).
		Scan(&stats).Error
	if err != nil {
		return errs.Dependency("failed to aggregate reviews", err)
	}

	err = tx.Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]interface{}{
			"avg_rating":    stats.Avg,
			"total_reviews": stats.Count,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return errs.Dependency("failed to update agent rating", err)
	}
	return nil
}
