package tasks

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

// CancelledResult is the fixed result text written by Cancel.
const CancelledResult = "Task cancelled by user"

// WarnDispatchFailed is returned from Create when the processing trigger
// could not be scheduled. Creation itself still succeeds.
const WarnDispatchFailed = "processing could not be scheduled; it will be retried after payment confirmation"

// DispatchFunc requests asynchronous processing of a task.
type DispatchFunc func(taskID string) error

// Options configures optional service behavior.
type Options struct {
	// Dispatch is invoked fire-and-forget after creation and after a
	// revision request. May be nil.
	Dispatch DispatchFunc
	// ClearResultOnRevision wipes the stale result when a revision
	// re-enters processing. Off by default: the last good result stays
	// visible while the task regenerates.
	ClearResultOnRevision bool
}

// Service owns the task lifecycle: creation, status transitions,
// revision bookkeeping and event publication.
type Service struct {
	db   *gorm.DB
	hub  *events.Hub
	opts Options
	log  *logrus.Entry
}

// NewService creates a new task service
func NewService(db *gorm.DB, hub *events.Hub, opts Options) *Service {
	return &Service{
		db:   db,
		hub:  hub,
		opts: opts,
		log:  logrus.WithField("component", "tasks"),
	}
}

// CreateInput carries a task submission.
type CreateInput struct {
	AgentID             string  `json:"agent_id"`
	Prompt              string  `json:"prompt"`
	AdditionalInfo      string  `json:"additional_info"`
	AttachmentID        string  `json:"attachment_id"`
	Price               float64 `json:"price"`
	NotificationChannel string  `json:"notification_channel"`
	OutputFormat        string  `json:"output_format"`
	MaxRevisions        int     `json:"max_revisions"`
}

// Create submits a new task against an agent. The returned warning is
// non-empty when the downstream processing trigger could not be
// scheduled; the task row is still created.
func (s *Service) Create(ctx context.Context, caller auth.Context, in CreateInput) (*models.Task, string, error) {
	if in.Prompt == "" {
		return nil, "", errs.Validation("prompt is required")
	}
	if in.Price < 0 {
		return nil, "", errs.Validation("price must not be negative")
	}
	if in.MaxRevisions < 0 {
		return nil, "", errs.Validation("max_revisions must not be negative")
	}
	if in.NotificationChannel == "" {
		in.NotificationChannel = models.ChannelNone
	}
	if !models.ValidChannel(in.NotificationChannel) {
		return nil, "", errs.Validation("unknown notification channel %q", in.NotificationChannel)
	}
	if in.OutputFormat == "" {
		in.OutputFormat = models.FormatText
	}
	if !models.ValidFormat(in.OutputFormat) {
		return nil, "", errs.Validation("unknown output format %q", in.OutputFormat)
	}

	var agent models.Agent
	if err := s.db.WithContext(ctx).First(&agent, "id = ?", in.AgentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", errs.NotFound("agent not found: %s", in.AgentID)
		}
		return nil, "", errs.Dependency("failed to load agent", err)
	}
	if agent.Status != models.AgentStatusApproved {
		return nil, "", errs.Validation("agent is not approved")
	}

	now := time.Now()
	task := &models.Task{
		ID:                  uuid.New().String(),
		UserID:              caller.UserID,
		AgentID:             in.AgentID,
		Prompt:              in.Prompt,
		AdditionalInfo:      in.AdditionalInfo,
		AttachmentID:        in.AttachmentID,
		Status:              models.TaskStatusPending,
		Price:               in.Price,
		PaymentStatus:       models.PaymentStatusPending,
		NotificationChannel: in.NotificationChannel,
		OutputFormat:        in.OutputFormat,
		RevisionCount:       0,
		MaxRevisions:        in.MaxRevisions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, "", errs.Dependency("failed to create task", err)
	}

	s.hub.Publish(events.Event{TaskID: task.ID, Type: events.TypeCreated, Task: task})

	warning := ""
	if s.opts.Dispatch != nil {
		if err := s.opts.Dispatch(task.ID); err != nil {
			s.log.WithError(err).WithField("task_id", task.ID).Warn("failed to schedule processing")
			warning = WarnDispatchFailed
		}
	}

	return task, warning, nil
}

// GetByID loads a task scoped to its owner. Another user's task is
// indistinguishable from a missing one.
func (s *Service) GetByID(ctx context.Context, caller auth.Context, taskID string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", taskID, caller.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("task not found: %s", taskID)
		}
		return nil, errs.Dependency("failed to load task", err)
	}
	return &task, nil
}

// Filter narrows List results.
type Filter struct {
	Status  string
	AgentID string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// List returns the caller's tasks, newest first.
func (s *Service) List(ctx context.Context, caller auth.Context, f Filter) ([]models.Task, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", caller.UserID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.AgentID != "" {
		query = query.Where("agent_id = ?", f.AgentID)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	var out []models.Task
	if err := query.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list tasks", err)
	}
	return out, nil
}

// ListRevisions returns the archived revision snapshots of a task,
// newest first.
func (s *Service) ListRevisions(ctx context.Context, caller auth.Context, taskID string) ([]models.TaskRevision, error) {
	if _, err := s.GetByID(ctx, caller, taskID); err != nil {
		return nil, err
	}

	var out []models.TaskRevision
	if err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list revisions", err)
	}
	return out, nil
}

// RequestRevision archives the task's current result (if any), bumps the
// revision counter and moves the task back to processing. The archive and
// the counter bump commit in one transaction; a conditional update on
// revision_count rejects the second of two concurrent requests.
func (s *Service) RequestRevision(ctx context.Context, caller auth.Context, taskID, feedback string) (*models.Task, error) {
	if feedback == "" {
		return nil, errs.Validation("feedback is required")
	}

	task, err := s.GetByID(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusFailed && task.RevisionCount == 0 {
		return nil, errs.Validation("a failed task that never completed cannot be revised")
	}
	if task.RevisionCount >= task.MaxRevisions {
		return nil, errs.RevisionLimit("revision limit reached")
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.Result != nil {
			revision := &models.TaskRevision{
				ID:        uuid.New().String(),
				TaskID:    task.ID,
				Result:    *task.Result,
				Feedback:  feedback,
				CreatedAt: now,
			}
			if err := tx.Create(revision).Error; err != nil {
				return errs.Dependency("failed to archive revision", err)
			}
		}

		updates := map[string]interface{}{
			"revision_count": task.RevisionCount + 1,
			"status":         models.TaskStatusProcessing,
			"feedback":       feedback,
			"updated_at":     now,
		}
		if s.opts.ClearResultOnRevision {
			updates["result"] = nil
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND revision_count = ?", task.ID, task.RevisionCount).
			Updates(updates)
		if res.Error != nil {
			return errs.Dependency("failed to update task", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Dependency("task was modified concurrently", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetByID(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.Event{TaskID: task.ID, Type: events.TypeRevision, Task: updated})

	if s.opts.Dispatch != nil {
		if err := s.opts.Dispatch(task.ID); err != nil {
			s.log.WithError(err).WithField("task_id", task.ID).Warn("failed to schedule reprocessing")
		}
	}

	return updated, nil
}

// Cancel marks a task failed with a fixed explanatory result. Calling it
// again is a no-op.
func (s *Service) Cancel(ctx context.Context, caller auth.Context, taskID string) (*models.Task, error) {
	task, err := s.GetByID(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusFailed && task.Result != nil && *task.Result == CancelledResult {
		return task, nil
	}

	result := CancelledResult
	task.Status = models.TaskStatusFailed
	task.Result = &result
	task.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, errs.Dependency("failed to cancel task", err)
	}

	s.hub.Publish(events.Event{TaskID: task.ID, Type: events.TypeStatus, Task: task})

	return task, nil
}

// UpdateOutputFormat changes the requested output format. Metadata only;
// no status effect.
func (s *Service) UpdateOutputFormat(ctx context.Context, caller auth.Context, taskID, format string) error {
	if !models.ValidFormat(format) {
		return errs.Validation("unknown output format %q", format)
	}
	return s.updateField(ctx, caller, taskID, "output_format", format)
}

// UpdateNotificationChannel changes the notification channel. Metadata
// only; no status effect.
func (s *Service) UpdateNotificationChannel(ctx context.Context, caller auth.Context, taskID, channel string) error {
	if !models.ValidChannel(channel) {
		return errs.Validation("unknown notification channel %q", channel)
	}
	return s.updateField(ctx, caller, taskID, "notification_channel", channel)
}

func (s *Service) updateField(ctx context.Context, caller auth.Context, taskID, column, value string) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, caller.UserID).
		Updates(map[string]interface{}{
			column:       value,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errs.Dependency("failed to update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("task not found: %s", taskID)
	}
	return nil
}
