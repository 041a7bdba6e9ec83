package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"task-manager-api/internal/core/config"
	"task-manager-api/internal/domain"
	"task-manager-api/pkg/utils"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.DB{
		Driver:      "sqlite",
		DSN:         "file::memory:",
		AutoMigrate: true,
		LogLevel:    "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newUser(email string) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           utils.NewID(),
		Username:     "user-" + email,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newTask(owner, title string, due time.Time, p domain.Priority) *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:        utils.NewID(),
		Title:     title,
		DueDate:   due.UTC(),
		Priority:  p,
		UserID:    owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
