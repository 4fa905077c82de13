// Package photobot собирает хранилище бота из конфигурации: пул PostgreSQL,
// схему, репозитории, кеш статистики, публикацию событий и фоновые задачи.
package photobot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/photobot/store/internal/cache"
	"github.com/photobot/store/internal/config"
	"github.com/photobot/store/internal/lib/sl"
	"github.com/photobot/store/internal/metrics"
	"github.com/photobot/store/internal/rabbitmq"
	"github.com/photobot/store/internal/services/scheduler"
	"github.com/photobot/store/internal/services/stats"
	"github.com/photobot/store/internal/services/subscription"
	"github.com/photobot/store/internal/storage/postgresql"
	"github.com/photobot/store/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App держит все компоненты хранилища и освобождает их в Close.
type App struct {
	DB            *postgresql.Storage
	Repository    *repository.Storage
	Subscriptions *subscription.Service
	Stats         *stats.Service
	Sweeper       *scheduler.ExpirySweeper

	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
	server *http.Server
	logger *slog.Logger
}

// New подключается к хранилищу, создаёт схему и собирает сервисы.
// Кеш и публикация событий подключаются, только если заданы их адреса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "photobot.New"

	db, err := postgresql.New(ctx, cfg.Database, postgresql.WithTracer(&metrics.QueryTracer{}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{DB: db, logger: logger}

	if err := db.EnsureSchema(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var opts []repository.Option
	var statsCache stats.Cache
	if cfg.Redis.Address != "" {
		app.cache, err = cache.InitServer(ctx, cfg.Redis, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("%s: cache not initialized: %w", op, err)
		}
		statsCache = app.cache
		opts = append(opts, repository.WithUserChangeListener(app.cache))
		logger.Info("stats cache enabled", slog.String("address", cfg.Redis.Address))
	}

	if cfg.RabbitMQ.URL != "" {
		app.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("%s: failed to connect RabbitMQ: %w", op, err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, cfg.RabbitMQ.Exchange, rabbitmq.GetActionQueues())
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("%s: failed to setup RabbitMQ channel: %w", op, err)
		}
		opts = append(opts, repository.WithActionListener(
			rabbitmq.NewPublisher(app.ch, cfg.RabbitMQ.Exchange, logger)))
		logger.Info("action publishing enabled", slog.String("exchange", cfg.RabbitMQ.Exchange))
	}

	app.Repository = repository.New(db, opts...)
	app.Subscriptions = subscription.NewSubscriptionService(app.Repository, logger, cfg.Expiry.BatchSize)
	app.Stats = stats.NewStatsService(app.Repository, statsCache, cfg.Redis.StatsTTL, logger)
	app.Sweeper = scheduler.NewExpirySweeper(app.Subscriptions, cfg.Expiry.Schedule, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	app.server = &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return app, nil
}

// Run запускает фоновую проверку подписок и отдачу метрик и блокируется до
// отмены ctx или ошибки сервера метрик.
func (a *App) Run(ctx context.Context) error {
	if err := a.Sweeper.Start(ctx); err != nil {
		return err
	}
	defer a.Sweeper.Stop(shutdownTimeout)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down metrics server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

// Close освобождает соединения. Повторный вызов безопасен.
func (a *App) Close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Warn("failed to close RabbitMQ channel", sl.Err(err))
		}
		a.ch = nil
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("failed to close RabbitMQ connection", sl.Err(err))
		}
		a.conn = nil
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis client", sl.Err(err))
		}
		a.cache = nil
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}
