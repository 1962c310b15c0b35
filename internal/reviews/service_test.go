package reviews

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var buyer = auth.Context{UserID: "user-1", Role: models.RoleUser}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func seedCompletedTask(t *testing.T, db *gorm.DB, userID, agentID string) *models.Task {
	t.Helper()
	result := "done"
	task := &models.Task{
		ID:                  uuid.New().String(),
		UserID:              userID,
		AgentID:             agentID,
		Prompt:              "p",
		Status:              models.TaskStatusCompleted,
		Result:              &result,
		PaymentStatus:       models.PaymentStatusCompleted,
		NotificationChannel: models.ChannelNone,
		OutputFormat:        models.FormatText,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func seedAgent(t *testing.T, db *gorm.DB) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		ID:           uuid.New().String(),
		UserID:       "dev-1",
		Name:         "Summarizer",
		Category:     models.CategoryTextGeneration,
		PricingModel: models.PricingPayPerUse,
		Status:       models.AgentStatusApproved,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func TestSubmit(t *testing.T) {
	t.Run("rejects out-of-range ratings", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewService(db, events.NewHub())

		for _, rating := range []int{0, -1, 6} {
			_, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: "t", Rating: rating})
			assert.True(t, errs.IsKind(err, errs.KindValidation), "rating %d", rating)
		}
	})

	t.Run("rejects incomplete tasks", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewService(db, events.NewHub())
		agent := seedAgent(t, db)
		task := seedCompletedTask(t, db, buyer.UserID, agent.ID)
		require.NoError(t, db.Model(task).Update("status", models.TaskStatusProcessing).Error)

		_, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 4})
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("rejects another user's task", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewService(db, events.NewHub())
		agent := seedAgent(t, db)
		task := seedCompletedTask(t, db, "someone-else", agent.ID)

		_, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 4})
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("resubmission updates in place", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewService(db, events.NewHub())
		agent := seedAgent(t, db)
		task := seedCompletedTask(t, db, buyer.UserID, agent.ID)

		first, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 5})
		require.NoError(t, err)

		text := "changed my mind"
		second, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 2, ReviewText: &text})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.Rating)

		var count int64
		db.Model(&models.TaskReview{}).Where("task_id = ?", task.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("refreshes the agent's rating", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewService(db, events.NewHub())
		agent := seedAgent(t, db)

		taskA := seedCompletedTask(t, db, buyer.UserID, agent.ID)
		taskB := seedCompletedTask(t, db, buyer.UserID, agent.ID)

		_, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: taskA.ID, Rating: 5})
		require.NoError(t, err)
		_, err = svc.Submit(context.Background(), buyer, SubmitInput{TaskID: taskB.ID, Rating: 2})
		require.NoError(t, err)

		var got models.Agent
		require.NoError(t, db.First(&got, "id = ?", agent.ID).Error)
		assert.InDelta(t, 3.5, got.AvgRating, 0.001)
		assert.EqualValues(t, 2, got.TotalReviews)
	})
}

func TestGetByTaskID(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewHub())
	agent := seedAgent(t, db)
	task := seedCompletedTask(t, db, buyer.UserID, agent.ID)

	_, err := svc.GetByTaskID(context.Background(), buyer, task.ID)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	_, err = svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 4})
	require.NoError(t, err)

	review, err := svc.GetByTaskID(context.Background(), buyer, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)

	stranger := auth.Context{UserID: "user-2", Role: models.RoleUser}
	_, err = svc.GetByTaskID(context.Background(), stranger, task.ID)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestListByAgent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, events.NewHub())
	agent := seedAgent(t, db)

	for i := 0; i < 3; i++ {
		task := seedCompletedTask(t, db, buyer.UserID, agent.ID)
		_, err := svc.Submit(context.Background(), buyer, SubmitInput{TaskID: task.ID, Rating: 3 + i%2})
		require.NoError(t, err)
	}

	reviews, err := svc.ListByAgent(context.Background(), agent.ID, 0)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	reviews, err = svc.ListByAgent(context.Background(), "other-agent", 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
