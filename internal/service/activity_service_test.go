package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

func setupActivityService(t *testing.T) (*gorm.DB, ActivityService) {
	t.Helper()

	dsn := fmt.Sprintf("file:activity_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.ActivityLog{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewActivityService(repository.NewActivityLogRepository(db), validate, testLogger())

	return db, svc
}

func TestActivityServiceRecordSanitizesSensitiveMetadata(t *testing.T) {
	_, svc := setupActivityService(t)

	entityID := uint(5)
	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     " User.Created ",
		EntityType: "User",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"password":    "secret",
			"reset_token": "abc123",
			"email":       "ada@example.com",
		},
	})
	require.NoError(t, err)

	require.Equal(t, "user.created", entry.Action)
	require.Equal(t, "user", entry.EntityType)
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "***", entry.Metadata["password"])
	require.Equal(t, "***", entry.Metadata["reset_token"])
	require.Equal(t, "ada@example.com", entry.Metadata["email"])
	require.NotNil(t, entry.EntityID)
	require.Equal(t, uint(5), *entry.EntityID)
}

func TestActivityServiceRecordDefaults(t *testing.T) {
	_, svc := setupActivityService(t)

	entry, err := svc.Record(context.Background(), ActivityEntry{
		Action:     "bootstrap.admin_created",
		EntityType: "user",
	})
	require.NoError(t, err)

	require.Equal(t, "system", entry.ActorRole)
	require.NotNil(t, entry.Metadata)
	require.Empty(t, entry.Metadata)
}

func TestActivityServiceRecordRequiresActionAndEntity(t *testing.T) {
	_, svc := setupActivityService(t)

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "user"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: "user.created"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersAndPaginates(t *testing.T) {
	db, svc := setupActivityService(t)

	base := time.Now().UTC().Truncate(time.Second)
	seed := []models.ActivityLog{
		{ActorID: 1, ActorRole: "admin", Action: "user.created", EntityType: "user", CreatedAt: base.Add(-2 * time.Minute)},
		{ActorID: 1, ActorRole: "admin", Action: "user.updated", EntityType: "user", CreatedAt: base.Add(-time.Minute)},
		{ActorID: 2, ActorRole: "teacher", Action: "exam.created", EntityType: "exam", CreatedAt: base},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	entries, meta, err := svc.List(context.Background(), dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "exam.created", entries[0].Action)
	require.Equal(t, int64(3), meta.TotalItems)
	require.Equal(t, 20, meta.PageSize)
	require.Equal(t, 1, meta.TotalPages)

	entries, _, err = svc.List(context.Background(), dto.ActivityListRequest{Action: "user.created"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint(1), entries[0].ActorID)

	entries, meta, err = svc.List(context.Background(), dto.ActivityListRequest{EntityType: "user"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(2), meta.TotalItems)

	entries, meta, err = svc.List(context.Background(), dto.ActivityListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "user.created", entries[0].Action)
	require.Equal(t, 2, meta.TotalPages)
}

func TestActivityServiceListRejectsOversizedPage(t *testing.T) {
	_, svc := setupActivityService(t)

	_, _, err := svc.List(context.Background(), dto.ActivityListRequest{PageSize: 200})
	require.Error(t, err)
}
