// Package repository реализует репозитории пользователей, фото и журнала действий
// поверх пула PostgreSQL. Все изменяющие операции, которые пишут в журнал,
// выполняются одной транзакцией.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/photobot/store/internal/models"
	"github.com/photobot/store/internal/storage/postgresql"
)

// UserChangeListener получает уведомление после фиксации изменения пользователя
// или его фото.
type UserChangeListener interface {
	UserChanged(ctx context.Context, userID int64)
}

// ActionListener получает каждую зафиксированную запись журнала.
type ActionListener interface {
	ActionAppended(ctx context.Context, action models.Action)
}

// Storage объединяет репозитории поверх общего пула.
type Storage struct {
	db              *postgresql.Storage
	userListeners   []UserChangeListener
	actionListeners []ActionListener
}

type Option func(*Storage)

// WithUserChangeListener подписывает l на изменения пользователей.
func WithUserChangeListener(l UserChangeListener) Option {
	return func(s *Storage) { s.userListeners = append(s.userListeners, l) }
}

// WithActionListener подписывает l на новые записи журнала.
func WithActionListener(l ActionListener) Option {
	return func(s *Storage) { s.actionListeners = append(s.actionListeners, l) }
}

// New создаёт Storage поверх пула соединений.
func New(db *postgresql.Storage, opts ...Option) *Storage {
	s := &Storage{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithinTx(ctx, fn)
}

func (s *Storage) userChanged(ctx context.Context, userID int64) {
	if len(s.userListeners) == 0 {
		return
	}
	postgresql.AfterCommit(ctx, func(ctx context.Context) {
		for _, l := range s.userListeners {
			l.UserChanged(ctx, userID)
		}
	})
}

func (s *Storage) actionAppended(ctx context.Context, action models.Action) {
	if len(s.actionListeners) == 0 {
		return
	}
	postgresql.AfterCommit(ctx, func(ctx context.Context) {
		for _, l := range s.actionListeners {
			l.ActionAppended(ctx, action)
		}
	})
}

// utcTime переводит timestamptz в *time.Time в UTC. NULL даёт nil,
// бесконечность даёт ErrInconsistentTimestamp.
func utcTime(ts pgtype.Timestamptz) (*time.Time, error) {
	if !ts.Valid {
		return nil, nil
	}
	if ts.InfinityModifier != pgtype.Finite {
		return nil, fmt.Errorf("%w: %s", models.ErrInconsistentTimestamp, ts.InfinityModifier)
	}
	t := ts.Time.UTC()
	return &t, nil
}

func requiredUTCTime(ts pgtype.Timestamptz) (time.Time, error) {
	t, err := utcTime(ts)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, fmt.Errorf("%w: unexpected NULL", models.ErrInconsistentTimestamp)
	}
	return *t, nil
}
