package agents

import (
	"context"
	"fmt"
	"testing"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	developer = auth.Context{UserID: "dev-1", Role: models.RoleDeveloper}
	admin     = auth.Context{UserID: "admin-1", Role: models.RoleAdmin}
	buyer     = auth.Context{UserID: "user-1", Role: models.RoleUser}
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return NewService(db, nil, 0), db
}

func mustCreate(t *testing.T, svc *Service, caller auth.Context, name string) *models.Agent {
	t.Helper()
	agent, err := svc.Create(context.Background(), caller, CreateInput{
		Name:     name,
		Category: models.CategoryTextGeneration,
	})
	require.NoError(t, err)
	return agent
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("developer creates a pending listing", func(t *testing.T) {
		agent := mustCreate(t, svc, developer, "Summarizer")
		assert.Equal(t, models.AgentStatusPending, agent.Status)
		assert.Equal(t, developer.UserID, agent.UserID)
		assert.Equal(t, models.PricingFree, agent.PricingModel)
	})

	t.Run("regular users cannot create", func(t *testing.T) {
		_, err := svc.Create(context.Background(), buyer, CreateInput{
			Name:     "Nope",
			Category: models.CategoryTextGeneration,
		})
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), developer, CreateInput{
			Name:     "Nope",
			Category: "time-travel",
		})
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("name required", func(t *testing.T) {
		_, err := svc.Create(context.Background(), developer, CreateInput{
			Category: models.CategoryTextGeneration,
		})
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})
}

func TestModeration(t *testing.T) {
	svc, _ := newTestService(t)
	agent := mustCreate(t, svc, developer, "Summarizer")

	t.Run("non-admin cannot moderate", func(t *testing.T) {
		_, err := svc.Approve(context.Background(), developer, agent.ID)
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("admin approves", func(t *testing.T) {
		approved, err := svc.Approve(context.Background(), admin, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AgentStatusApproved, approved.Status)
	})

	t.Run("admin rejects", func(t *testing.T) {
		other := mustCreate(t, svc, developer, "Spammy")
		rejected, err := svc.Reject(context.Background(), admin, other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AgentStatusRejected, rejected.Status)
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := svc.Approve(context.Background(), admin, "nope")
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}

func TestGetByID(t *testing.T) {
	svc, _ := newTestService(t)
	agent := mustCreate(t, svc, developer, "Summarizer")

	t.Run("owner sees own pending listing", func(t *testing.T) {
		got, err := svc.GetByID(context.Background(), developer, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, agent.ID, got.ID)
	})

	t.Run("admin sees pending listing", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), admin, agent.ID)
		require.NoError(t, err)
	})

	t.Run("pending listing hidden from others", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), buyer, agent.ID)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("approved listing is public", func(t *testing.T) {
		_, err := svc.Approve(context.Background(), admin, agent.ID)
		require.NoError(t, err)

		got, err := svc.GetByID(context.Background(), buyer, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, agent.ID, got.ID)
	})
}

func TestListApproved(t *testing.T) {
	svc, _ := newTestService(t)

	summarizer := mustCreate(t, svc, developer, "Summarizer")
	translator, err := svc.Create(context.Background(), developer, CreateInput{
		Name:        "Translator",
		Description: "translates documents",
		Category:    models.CategoryTranslation,
	})
	require.NoError(t, err)
	mustCreate(t, svc, developer, "Unmoderated")

	_, err = svc.Approve(context.Background(), admin, summarizer.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), admin, translator.ID)
	require.NoError(t, err)

	t.Run("only approved listings", func(t *testing.T) {
		list, err := svc.ListApproved(context.Background(), CatalogFilter{})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("category filter", func(t *testing.T) {
		list, err := svc.ListApproved(context.Background(), CatalogFilter{Category: models.CategoryTranslation})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, translator.ID, list[0].ID)
	})

	t.Run("search matches name and description", func(t *testing.T) {
		list, err := svc.ListApproved(context.Background(), CatalogFilter{Search: "documents"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, translator.ID, list[0].ID)
	})
}

func TestListMineAndPending(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, developer, "One")
	mustCreate(t, svc, developer, "Two")

	mine, err := svc.ListMine(context.Background(), developer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	mine, err = svc.ListMine(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, mine)

	pending, err := svc.ListPending(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.ListPending(context.Background(), developer)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}
