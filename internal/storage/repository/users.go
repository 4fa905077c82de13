package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/photobot/store/internal/models"
	"github.com/photobot/store/internal/storage/postgresql"
)

const userColumns = `user_id, username, full_name, subscription, subscription_start,
	subscription_end, created_at, last_active`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u                         models.User
		start, end, created, last pgtype.Timestamptz
		err                       error
	)
	if err = row.Scan(&u.UserID, &u.Username, &u.FullName, &u.Subscription,
		&start, &end, &created, &last); err != nil {
		return nil, err
	}
	if u.SubscriptionStart, err = utcTime(start); err != nil {
		return nil, err
	}
	if u.SubscriptionEnd, err = utcTime(end); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = requiredUTCTime(created); err != nil {
		return nil, err
	}
	if u.LastActive, err = requiredUTCTime(last); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser создаёт пользователя или обновляет имя и время активности существующего.
// Поля подписки не затрагиваются.
func (s *Storage) UpsertUser(ctx context.Context, userID int64, username *string, fullName string) error {
	const op = "storage.UpsertUser"

	query := `INSERT INTO users (user_id, username, full_name)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE SET
			      username = EXCLUDED.username,
			      full_name = EXCLUDED.full_name,
			      last_active = now()`
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		_, err := q.Exec(ctx, query, userID, username, fullName)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.userChanged(ctx, userID)
	return nil
}

// GetUser возвращает пользователя по идентификатору или nil, если его нет.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	var u *models.User
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		var err error
		u, err = scanUser(q.QueryRow(ctx, query, userID))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetSubscription возвращает состояние подписки и now() хранилища.
// При forUpdate строка блокируется до конца текущей транзакции.
// Возвращает nil, если пользователя нет.
func (s *Storage) GetSubscription(ctx context.Context, userID int64, forUpdate bool) (*models.SubscriptionState, error) {
	const op = "storage.GetSubscription"

	query := `SELECT user_id, subscription, subscription_end, now() FROM users WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var st *models.SubscriptionState
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		var (
			res      models.SubscriptionState
			end, now pgtype.Timestamptz
			err      error
		)
		if err = q.QueryRow(ctx, query, userID).Scan(&res.UserID, &res.Subscription, &end, &now); err != nil {
			return err
		}
		if res.End, err = utcTime(end); err != nil {
			return err
		}
		if res.Now, err = requiredUTCTime(now); err != nil {
			return err
		}
		st = &res
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// StartSubscription включает подписку на days дней начиная с now().
// Повторная активация сбрасывает окно, а не продлевает его.
func (s *Storage) StartSubscription(ctx context.Context, userID int64, days int) error {
	const op = "storage.StartSubscription"

	query := `UPDATE users
			  SET subscription = true,
			      subscription_start = now(),
			      subscription_end = now() + make_interval(days => $1)
			  WHERE user_id = $2`
	return s.updateUser(ctx, op, userID, query, days, userID)
}

// StopSubscription выключает подписку и очищает дату окончания.
func (s *Storage) StopSubscription(ctx context.Context, userID int64) error {
	const op = "storage.StopSubscription"

	query := `UPDATE users
			  SET subscription = false,
			      subscription_end = NULL
			  WHERE user_id = $1`
	return s.updateUser(ctx, op, userID, query, userID)
}

func (s *Storage) updateUser(ctx context.Context, op string, userID int64, query string, args ...any) error {
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		tag, err := q.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %d does not exist: %w", userID, postgresql.ErrConstraintViolation)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.userChanged(ctx, userID)
	return nil
}

// ListExpiredSubscriptions возвращает до limit пользователей, у которых подписка
// включена, но её окончание уже наступило. Бесконечные окончания не попадают
// в выборку, их перечисляет ListInconsistentSubscriptions.
func (s *Storage) ListExpiredSubscriptions(ctx context.Context, limit int) ([]int64, error) {
	const op = "storage.ListExpiredSubscriptions"

	query := `SELECT user_id
			  FROM users
			  WHERE subscription AND subscription_end <= now() AND isfinite(subscription_end)
			  ORDER BY subscription_end
			  LIMIT $1`
	return s.listUserIDs(ctx, op, query, limit)
}

// ListInconsistentSubscriptions возвращает до limit пользователей с включённой
// подпиской и бесконечным окончанием, которое нельзя сравнить с текущим временем.
func (s *Storage) ListInconsistentSubscriptions(ctx context.Context, limit int) ([]int64, error) {
	const op = "storage.ListInconsistentSubscriptions"

	query := `SELECT user_id
			  FROM users
			  WHERE subscription AND NOT isfinite(subscription_end)
			  ORDER BY user_id
			  LIMIT $1`
	return s.listUserIDs(ctx, op, query, limit)
}

func (s *Storage) listUserIDs(ctx context.Context, op, query string, limit int) ([]int64, error) {
	var ids []int64
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		rows, err := q.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
