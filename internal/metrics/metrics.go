package metrics

import (
	"context"
	"time"

	"agentmarket/server/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

var meter = otel.Meter("task-metrics")

// Recorder collects task processing metrics. Each processing run emits
// OTel instruments and one durable TaskMetric row; metric persistence
// failures are logged, never propagated to the processing path.
type Recorder struct {
	db *gorm.DB

	tasksProcessedCounter metric.Int64Counter
	tasksFailedCounter    metric.Int64Counter
	taskDurationHistogram metric.Float64Histogram

	log *logrus.Entry
}

// NewRecorder creates a new metrics recorder
func NewRecorder(db *gorm.DB) (*Recorder, error) {
	tasksProcessedCounter, err := meter.Int64Counter(
		"agentmarket.tasks.processed",
		metric.WithDescription("Total number of task processing runs"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	tasksFailedCounter, err := meter.Int64Counter(
		"agentmarket.tasks.failed",
		metric.WithDescription("Total number of failed task processing runs"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	taskDurationHistogram, err := meter.Float64Histogram(
		"agentmarket.task.duration",
		metric.WithDescription("Duration of task processing in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		db:                    db,
		tasksProcessedCounter: tasksProcessedCounter,
		tasksFailedCounter:    tasksFailedCounter,
		taskDurationHistogram: taskDurationHistogram,
		log:                   logrus.WithField("component", "metrics"),
	}, nil
}

// RecordProcessing records one processing run's outcome and duration.
func (r *Recorder) RecordProcessing(ctx context.Context, taskID, outcome string, duration time.Duration, procErr error) {
	attrs := metric.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.String("outcome", outcome),
	)

	r.tasksProcessedCounter.Add(ctx, 1, attrs)
	if outcome == models.TaskStatusFailed {
		r.tasksFailedCounter.Add(ctx, 1, attrs)
	}
	r.taskDurationHistogram.Record(ctx, duration.Seconds(), attrs)

	row := &models.TaskMetric{
		TaskID:     taskID,
		DurationMS: duration.Milliseconds(),
		Outcome:    outcome,
		CreatedAt:  time.Now(),
	}
	if procErr != nil {
		row.Error = procErr.Error()
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		r.log.WithError(err).WithField("task_id", taskID).Error("failed to persist task metric")
	}
}

// RecordAudit writes a security/audit event row.
func (r *Recorder) RecordAudit(ctx context.Context, eventType, taskID, userID, detail string) {
	event := &models.AuditEvent{
		EventType: eventType,
		TaskID:    taskID,
		UserID:    userID,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.log.WithError(err).WithField("event_type", eventType).Error("failed to persist audit event")
	}
}
