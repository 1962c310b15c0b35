package profiles

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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return NewService(db), db
}

func TestEnsure(t *testing.T) {
	svc, db := newTestService(t)

	profile, err := svc.Ensure(context.Background(), "user-1", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, models.RoleUser, profile.Role)

	// Second call returns the existing row
	require.NoError(t, db.Model(&models.Profile{}).
		Where("id = ?", "user-1").
		Update("role", models.RoleDeveloper).Error)

	again, err := svc.Ensure(context.Background(), "user-1", "Ada")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDeveloper, again.Role)

	var count int64
	db.Model(&models.Profile{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	_, err = svc.Ensure(context.Background(), "user-1", "Ada")
	require.NoError(t, err)

	profile, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FullName)
}

func TestUpdateRole(t *testing.T) {
	svc, _ := newTestService(t)
	admin := auth.Context{UserID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Ensure(context.Background(), "user-1", "Ada")
	require.NoError(t, err)

	t.Run("admin promotes a user", func(t *testing.T) {
		updated, err := svc.UpdateRole(context.Background(), admin, "user-1", models.RoleDeveloper)
		require.NoError(t, err)
		assert.Equal(t, models.RoleDeveloper, updated.Role)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		caller := auth.Context{UserID: "user-2", Role: models.RoleUser}
		_, err := svc.UpdateRole(context.Background(), caller, "user-1", models.RoleAdmin)
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := svc.UpdateRole(context.Background(), admin, "user-1", "superuser")
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := svc.UpdateRole(context.Background(), admin, "ghost", models.RoleUser)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}

func TestDashboardPathFor(t *testing.T) {
	assert.Equal(t, "/admin", DashboardPathFor(models.RoleAdmin))
	assert.Equal(t, "/developer/dashboard", DashboardPathFor(models.RoleDeveloper))
	assert.Equal(t, "/dashboard", DashboardPathFor(models.RoleUser))
	assert.Equal(t, "/dashboard", DashboardPathFor(""))
}
