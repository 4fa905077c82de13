package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier общий набор методов соединения и транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// hookTimeout ограничивает время работы хуков AfterCommit.
const hookTimeout = 5 * time.Second

type txContextKey struct{}

type txState struct {
	tx    pgx.Tx
	hooks []func(context.Context)
}

func stateFromContext(ctx context.Context) *txState {
	st, _ := ctx.Value(txContextKey{}).(*txState)
	return st
}

func txFromContext(ctx context.Context) pgx.Tx {
	if st := stateFromContext(ctx); st != nil {
		return st.tx
	}
	return nil
}

// AfterCommit откладывает fn до успешного commit текущей единицы работы.
// Вне транзакции запись уже зафиксирована, поэтому fn вызывается сразу.
// При rollback fn не вызывается.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if st := stateFromContext(ctx); st != nil {
		st.hooks = append(st.hooks, fn)
		return
	}
	runHooks(ctx, []func(context.Context){fn})
}

// runHooks вызывает fn после фиксации. Запись уже сохранена, поэтому отмена
// ctx вызывающего не должна прерывать хуки: они получают отвязанный контекст
// с собственным таймаутом.
func runHooks(ctx context.Context, hooks []func(context.Context)) {
	if len(hooks) == 0 {
		return
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()
	for _, hook := range hooks {
		hook(hctx)
	}
}

// InTx сообщает, выполняется ли ctx внутри единицы работы.
func InTx(ctx context.Context) bool {
	return txFromContext(ctx) != nil
}

// acquire берёт соединение из пула, ожидая не дольше acquireTimeout.
func (s *Storage) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	const op = "storage.postgresql.acquire"

	actx := ctx
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	conn, err := s.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	return conn, nil
}

// WithConn выполняет fn на соединении из пула и возвращает его в пул на любом пути выхода.
// Внутри WithinTx используется текущая транзакция.
func (s *Storage) WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return classify(fn(ctx, tx))
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return classify(fn(ctx, conn))
}

// WithinTx выполняет fn как одну единицу работы: commit при nil, rollback при ошибке или панике.
// Вложенные вызовы присоединяются к внешней транзакции.
func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "storage.postgresql.WithinTx"

	if InTx(ctx) {
		return fn(ctx)
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	st := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txContextKey{}, st)); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, classify(err))
	}
	committed = true

	runHooks(ctx, st.hooks)
	return nil
}
