// Package scheduler периодически выключает истёкшие подписки.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/photobot/store/internal/lib/sl"
)

// Expirer выключает истёкшие подписки и возвращает их число.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpirySweeper запускает Expirer по расписанию cron.
type ExpirySweeper struct {
	cron    *cron.Cron
	expirer Expirer
	spec    string
	log     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExpirySweeper создаёт планировщик. spec принимает стандартный формат cron
// и дескрипторы вида "@every 1m".
func NewExpirySweeper(expirer Expirer, spec string, log *slog.Logger) *ExpirySweeper {
	logger := cronLogger{log: log}
	return &ExpirySweeper{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		expirer: expirer,
		spec:    spec,
		log:     log,
	}
}

// Start регистрирует задачу и запускает расписание. Отмена ctx прерывает
// выполняющийся проход.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	const op = "scheduler.Start"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("%s: already started", op)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("%s: invalid schedule %q: %w", op, s.spec, err)
	}
	s.cancel = cancel
	s.cron.Start()
	s.log.Info("expiry sweeper started", slog.String("schedule", s.spec))
	return nil
}

// Stop останавливает расписание и ждёт завершения текущего прохода не дольше timeout.
func (s *ExpirySweeper) Stop(timeout time.Duration) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.log.Warn("expiry sweep did not finish in time, cancelling")
	}
	cancel()
	s.log.Info("expiry sweeper stopped")
}

// RunOnce выполняет один проход.
func (s *ExpirySweeper) RunOnce(ctx context.Context) {
	start := time.Now()
	resolved, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", slog.Int("resolved", resolved), sl.Err(err))
		return
	}
	if resolved == 0 {
		s.log.Debug("no expired subscriptions found")
		return
	}
	s.log.Info("expired subscriptions resolved",
		slog.Int("resolved", resolved),
		slog.Duration("took", time.Since(start)))
}

// cronLogger передаёт сообщения cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, sl.Err(err))...)
}
