package processor

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentmarket/server/internal/events"
	"agentmarket/server/internal/metrics"
	"agentmarket/server/internal/models"
	"agentmarket/server/internal/notify"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Result is the processing outcome reported to the trigger caller.
// Process never panics or errors past this envelope.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Processor runs the task pipeline after payment confirmation:
// pending -> processing -> completed/failed.
type Processor struct {
	db       *gorm.DB
	hub      *events.Hub
	notifier notify.Notifier
	metrics  *metrics.Recorder
	// Simulated work duration standing in for the real agent call
	workDelay time.Duration
	log       *logrus.Entry
}

// NewProcessor creates a new task processor
func NewProcessor(db *gorm.DB, hub *events.Hub, notifier notify.Notifier, recorder *metrics.Recorder, workDelay time.Duration) *Processor {
	return &Processor{
		db:        db,
		hub:       hub,
		notifier:  notifier,
		metrics:   recorder,
		workDelay: workDelay,
		log:       logrus.WithField("component", "processor"),
	}
}

// Process runs a single task through the pipeline. Every failure path
// funnels through markFailed so a task is never left in processing.
func (p *Processor) Process(ctx context.Context, taskID string) (res Result) {
	start := time.Now()

	p.metrics.RecordAudit(ctx, "task_process_requested", taskID, "", "")

	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("task_id", taskID).Errorf("panic while processing: %v", r)
			p.markFailed(taskID, "Error while completing task")
			res = Result{Success: false, Message: "Error while completing task"}
		}

		outcome := models.TaskStatusFailed
		var recErr error
		if res.Success {
			outcome = models.TaskStatusCompleted
		} else {
			recErr = errors.New(res.Message)
		}
		p.metrics.RecordProcessing(ctx, taskID, outcome, time.Since(start), recErr)
	}()

	var task models.Task
	if err := p.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{Success: false, Message: "Task not found"}
		}
		p.markFailed(taskID, "Error while loading task")
		return Result{Success: false, Message: "Error while loading task"}
	}

	// Failed and completed are terminal; only a revision request may
	// re-enter processing, and it does so before re-dispatching.
	if task.Terminal() {
		return Result{Success: false, Message: "Task already finished"}
	}

	// Payment gates the lifecycle: an unpaid task stays pending.
	if task.PaymentStatus != models.PaymentStatusCompleted {
		return Result{Success: false, Message: "Payment not completed"}
	}

	claimed, err := p.claimProcessing(ctx, task.ID)
	if err != nil {
		p.markFailed(task.ID, "Error while starting task")
		return Result{Success: false, Message: "Error while starting task"}
	}
	if !claimed {
		// Another writer drove the task terminal between load and claim
		return Result{Success: false, Message: "Task already finished"}
	}
	p.publish(ctx, task.ID, events.TypeStatus)

	var agent models.Agent
	if err := p.db.WithContext(ctx).First(&agent, "id = ?", task.AgentID).Error; err != nil {
		p.markFailed(task.ID, "Agent not found")
		return Result{Success: false, Message: "Agent not found"}
	}

	// User load failure only costs the notification.
	var user models.User
	userLoaded := true
	if err := p.db.WithContext(ctx).First(&user, "id = ?", task.UserID).Error; err != nil {
		p.log.WithError(err).WithField("task_id", task.ID).Warn("failed to load task owner, skipping notification")
		userLoaded = false
	}

	// Simulated agent work. Cancellable so a caller timeout cannot leave
	// the task in processing.
	select {
	case <-time.After(p.workDelay):
	case <-ctx.Done():
		p.markFailed(task.ID, "Processing cancelled")
		return Result{Success: false, Message: "Processing cancelled"}
	}

	result := synthesizeResult(&task, &agent)

	// Conditional on still being in processing: a cancel that landed
	// during the work keeps its terminal state.
	write := p.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", task.ID, models.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusCompleted,
			"result":     result,
			"updated_at": time.Now(),
		})
	if write.Error != nil {
		p.markFailed(task.ID, "Error while completing task")
		return Result{Success: false, Message: "Error while completing task"}
	}
	if write.RowsAffected == 0 {
		return Result{Success: false, Message: "Task already finished"}
	}
	p.publish(ctx, task.ID, events.TypeStatus)

	if task.NotificationChannel != models.ChannelNone && userLoaded {
		message := fmt.Sprintf("Your task %s has been completed", task.ID)
		if err := p.notifier.Send(ctx, task.NotificationChannel, user.Email, message); err != nil {
			p.log.WithError(err).WithField("task_id", task.ID).Warn("notification dispatch failed")
		}
	}

	return Result{Success: true, Message: "Task completed"}
}

// claimProcessing moves a task into processing. Conditional on the task
// not already being terminal, so a re-trigger cannot resurrect a failed
// or completed task.
func (p *Processor) claimProcessing(ctx context.Context, taskID string) (bool, error) {
	res := p.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status IN ?", taskID,
			[]string{models.TaskStatusPending, models.TaskStatusProcessing}).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusProcessing,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// markFailed writes a terminal failed status with a diagnostic result.
// Deliberately not bound to the caller's context: the cancellation that
// caused a failure must not also block the terminal write. Never
// overwrites a status another writer already made terminal. Best-effort:
// a write failure here is logged and swallowed.
func (p *Processor) markFailed(taskID, reason string) {
	res := p.db.Model(&models.Task{}).
		Where("id = ? AND status IN ?", taskID,
			[]string{models.TaskStatusPending, models.TaskStatusProcessing}).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusFailed,
			"result":     reason,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		p.log.WithError(res.Error).WithFields(logrus.Fields{
			"task_id": taskID,
			"reason":  reason,
		}).Error("failed to mark task failed")
		return
	}
	if res.RowsAffected == 0 {
		return
	}
	p.publish(context.Background(), taskID, events.TypeStatus)
}

func (p *Processor) publish(ctx context.Context, taskID, eventType string) {
	var task models.Task
	if err := p.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		return
	}
	p.hub.Publish(events.Event{TaskID: taskID, Type: eventType, Task: &task})
}

// synthesizeResult produces a mock result in the requested output format.
// json and csv are rendered natively; every other format degrades to
// text. Revision runs reference the feedback that triggered them.
func synthesizeResult(task *models.Task, agent *models.Agent) string {
	content := fmt.Sprintf("Generated response for prompt: %s", task.Prompt)
	if task.RevisionCount > 0 && task.Feedback != nil {
		content = fmt.Sprintf("%s (revised per feedback: %s)", content, *task.Feedback)
	}

	switch task.OutputFormat {
	case models.FormatJSON:
		payload := map[string]interface{}{
			"task_id":      task.ID,
			"agent":        agent.Name,
			"revision":     task.RevisionCount,
			"content":      content,
			"generated_at": time.Now().Format(time.RFC3339),
		}
		if task.RevisionCount > 0 && task.Feedback != nil {
			payload["feedback"] = *task.Feedback
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return content
		}
		return string(data)

	case models.FormatCSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		w.Write([]string{"task_id", "agent", "revision", "content"})
		w.Write([]string{task.ID, agent.Name, fmt.Sprintf("%d", task.RevisionCount), content})
		w.Flush()
		return sb.String()

	default:
		return fmt.Sprintf("%s by %s", content, agent.Name)
	}
}
