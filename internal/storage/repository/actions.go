package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/photobot/store/internal/models"
	"github.com/photobot/store/internal/storage/postgresql"
)

// AppendAction добавляет неизменяемую запись в журнал действий.
// Внутри WithinTx запись становится частью текущей единицы работы.
// details должен быть уже сериализован (см. models.EncodeDetails).
func (s *Storage) AppendAction(ctx context.Context, userID int64, actionType, details string) (*models.Action, error) {
	const op = "storage.AppendAction"

	query := `INSERT INTO user_actions (user_id, action_type, details)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`
	action := models.Action{
		UserID:     userID,
		ActionType: actionType,
		Details:    details,
	}
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		var created pgtype.Timestamptz
		if err := q.QueryRow(ctx, query, userID, actionType, details).Scan(&action.ID, &created); err != nil {
			return err
		}
		var err error
		action.CreatedAt, err = requiredUTCTime(created)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.actionAppended(ctx, action)
	return &action, nil
}

// ListActions возвращает журнал пользователя в порядке добавления.
func (s *Storage) ListActions(ctx context.Context, userID int64) ([]*models.Action, error) {
	const op = "storage.ListActions"

	query := `SELECT id, user_id, action_type, COALESCE(details, ''), created_at
			  FROM user_actions
			  WHERE user_id = $1
			  ORDER BY id`
	var result []*models.Action
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				a       models.Action
				created pgtype.Timestamptz
			)
			if err := rows.Scan(&a.ID, &a.UserID, &a.ActionType, &a.Details, &created); err != nil {
				return err
			}
			if a.CreatedAt, err = requiredUTCTime(created); err != nil {
				return err
			}
			result = append(result, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

