package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/photobot/store/internal/models"
	"github.com/photobot/store/internal/storage/postgresql"
	"github.com/photobot/store/internal/storage/postgresql/postgresqltest"
)

// recordingListener запоминает уведомления репозитория.
type recordingListener struct {
	mu      sync.Mutex
	users   []int64
	actions []models.Action
}

func (l *recordingListener) UserChanged(_ context.Context, userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = append(l.users, userID)
}

func (l *recordingListener) ActionAppended(_ context.Context, action models.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
}

// setupTestStorage поднимает PostgreSQL и возвращает репозиторий с пустой схемой.
func setupTestStorage(t *testing.T, opts ...Option) (*Storage, *postgresql.Storage) {
	db := postgresqltest.New(t)
	return New(db, opts...), db
}

// TestVerification прямые проверки содержимого таблиц
type TestVerification struct {
	db *postgresql.Storage
}

func NewTestVerification(db *postgresql.Storage) *TestVerification {
	return &TestVerification{db: db}
}

func (v *TestVerification) count(t *testing.T, query string, args ...any) int {
	var n int
	require.NoError(t, v.db.Pool().QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

// CountUsers количество строк users с данным идентификатором
func (v *TestVerification) CountUsers(t *testing.T, userID int64) int {
	return v.count(t, `SELECT COUNT(*) FROM users WHERE user_id = $1`, userID)
}

// CountPhotos количество строк photos пользователя
func (v *TestVerification) CountPhotos(t *testing.T, userID int64) int {
	return v.count(t, `SELECT COUNT(*) FROM photos WHERE user_id = $1`, userID)
}

// CountActions количество записей журнала данного типа
func (v *TestVerification) CountActions(t *testing.T, userID int64, actionType string) int {
	return v.count(t, `SELECT COUNT(*) FROM user_actions WHERE user_id = $1 AND action_type = $2`,
		userID, actionType)
}

// SetSubscriptionEnd вручную переносит окончание подписки
func (v *TestVerification) SetSubscriptionEnd(t *testing.T, userID int64, end time.Time) {
	_, err := v.db.Pool().Exec(context.Background(),
		`UPDATE users SET subscription_end = $1 WHERE user_id = $2`, end, userID)
	require.NoError(t, err)
}

// dbNow текущее время сервера
func (v *TestVerification) dbNow(t *testing.T) time.Time {
	var now time.Time
	require.NoError(t, v.db.Pool().QueryRow(context.Background(), `SELECT now()`).Scan(&now))
	return now.UTC()
}

func strPtr(s string) *string { return &s }
