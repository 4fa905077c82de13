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

// CreatePhoto сохраняет фото в статусе pending и пишет в журнал photo_uploaded
// в одной транзакции. Для несуществующего пользователя возвращает
// ErrConstraintViolation и не создаёт ни фото, ни записи журнала.
func (s *Storage) CreatePhoto(ctx context.Context, userID int64, fileID string, originalFilename *string) (int64, error) {
	const op = "storage.CreatePhoto"

	query := `INSERT INTO photos (user_id, file_id, original_filename)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var photoID int64
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
			return q.QueryRow(ctx, query, userID, fileID, originalFilename).Scan(&photoID)
		})
		if err != nil {
			return err
		}

		details, err := models.EncodeDetails(models.PhotoUploadedDetails{FileID: fileID, PhotoID: photoID})
		if err != nil {
			return err
		}
		if _, err := s.AppendAction(ctx, userID, models.ActionPhotoUploaded, details); err != nil {
			return err
		}
		s.userChanged(ctx, userID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return photoID, nil
}

// CountPhotos возвращает количество фото пользователя.
func (s *Storage) CountPhotos(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountPhotos"

	var count int
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		return q.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE user_id = $1`, userID).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetPhoto возвращает фото по идентификатору или nil, если его нет.
func (s *Storage) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	const op = "storage.GetPhoto"

	query := `SELECT id, user_id, file_id, file_path, original_filename, status,
			      result_text, processing_time, created_at, completed_at
			  FROM photos WHERE id = $1`
	var p *models.Photo
	err := s.db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		var (
			res                models.Photo
			created, completed pgtype.Timestamptz
			err                error
		)
		if err = q.QueryRow(ctx, query, id).Scan(&res.ID, &res.UserID, &res.FileID, &res.FilePath,
			&res.OriginalFilename, &res.Status, &res.ResultText, &res.ProcessingTime,
			&created, &completed); err != nil {
			return err
		}
		if res.CreatedAt, err = requiredUTCTime(created); err != nil {
			return err
		}
		if res.CompletedAt, err = utcTime(completed); err != nil {
			return err
		}
		p = &res
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
