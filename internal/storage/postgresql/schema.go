package postgresql

import (
	"context"
	"fmt"
)

// schemaLockID ключ advisory-блокировки, чтобы несколько процессов
// не создавали схему одновременно.
const schemaLockID = 0x70686f746f // "photo"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id            BIGINT PRIMARY KEY,
		username           TEXT,
		full_name          TEXT NOT NULL DEFAULT '',
		subscription       BOOLEAN NOT NULL DEFAULT FALSE,
		subscription_start TIMESTAMPTZ,
		subscription_end   TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_active        TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_inactive_without_end CHECK (subscription OR subscription_end IS NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES users(user_id),
		file_id           TEXT NOT NULL,
		file_path         TEXT,
		original_filename TEXT,
		status            TEXT NOT NULL DEFAULT 'pending',
		result_text       TEXT,
		processing_time   INTEGER,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at      TIMESTAMPTZ,
		CONSTRAINT photos_completed_when_not_pending CHECK ((status = 'pending') = (completed_at IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS user_actions (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(user_id),
		action_type TEXT NOT NULL,
		details     TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_photos_user_id ON photos (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_actions_user_id ON user_actions (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_subscription_end ON users (subscription_end) WHERE subscription`,
}

// EnsureSchema создаёт таблицы users, photos, user_actions и индексы, если их нет.
// Безопасно вызывать при каждом старте.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	const op = "storage.postgresql.EnsureSchema"

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		return s.WithConn(ctx, func(ctx context.Context, q Querier) error {
			if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
				return fmt.Errorf("failed to acquire schema lock: %w", err)
			}
			for _, stmt := range schemaStatements {
				if _, err := q.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
