package postgresql

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnection не удалось установить или получить соединение из пула.
	ErrConnection = errors.New("database connection unavailable")
	// ErrConstraintViolation запись нарушает ограничение схемы,
	// например фото или действие ссылается на несуществующего пользователя.
	ErrConstraintViolation = errors.New("constraint violation")
)

// classify сопоставляет ошибку драйвера с таксономией хранилища,
// сохраняя исходную ошибку в цепочке.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrConstraintViolation) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.ForeignKeyViolation,
			pgErr.Code == pgerrcode.UniqueViolation,
			pgErr.Code == pgerrcode.NotNullViolation,
			pgErr.Code == pgerrcode.CheckViolation,
			pgErr.Code == pgerrcode.RestrictViolation:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case pgerrcode.IsConnectionException(pgErr.Code):
			return fmt.Errorf("%w: %w", ErrConnection, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return err
}
