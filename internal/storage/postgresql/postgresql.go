// Package postgresql управляет пулом соединений с PostgreSQL, единицами работы
// (транзакциями) и схемой хранилища бота.
package postgresql

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photobot/store/internal/config"
)

// Storage владеет ограниченным пулом соединений.
type Storage struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// Option изменяет конфигурацию пула перед созданием.
type Option func(*pgxpool.Config)

// WithTracer устанавливает трассировщик запросов (например, для метрик).
func WithTracer(tracer pgx.QueryTracer) Option {
	return func(c *pgxpool.Config) {
		c.ConnConfig.Tracer = tracer
	}
}

// DSN собирает строку подключения из настроек.
func DSN(cfg config.Database) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	if cfg.SSLMode == "" {
		u.RawQuery = ""
	}
	return u.String()
}

// New создаёт пул соединений и проверяет, что база доступна.
// Любая ошибка здесь считается ErrConnection.
func New(ctx context.Context, cfg config.Database, opts ...Option) (*Storage, error) {
	const op = "storage.postgresql.New"

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = cfg.PoolSize
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = min(cfg.MinConns, poolCfg.MaxConns)
	}
	// Сервер отдаёт все timestamptz в UTC.
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	for _, opt := range opts {
		opt(poolCfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}

	return &Storage{
		pool:           pool,
		acquireTimeout: cfg.AcquireTimeout,
	}, nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

// Close закрывает все соединения пула.
func (s *Storage) Close() {
	s.pool.Close()
}
