// Package subscription содержит конечный автомат подписки пользователя:
// активация, отключение и проверка истечения с записью в журнал действий.
//
// Состояния: INACTIVE (subscription=false), ACTIVE (subscription=true и окончание
// в будущем) и EXPIRED (subscription=true, окончание наступило). EXPIRED не хранится:
// он обнаруживается при проверке и сразу переводится в INACTIVE.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/photobot/store/internal/lib/sl"
	"github.com/photobot/store/internal/metrics"
	"github.com/photobot/store/internal/models"
)

// DefaultDurationDays длительность подписки по умолчанию.
const DefaultDurationDays = 30

var (
	// ErrInvalidDuration длительность активации меньше одного дня.
	ErrInvalidDuration = errors.New("subscription duration must be at least one day")
	// ErrInconsistentTimestamp время окончания подписки нельзя сравнить с текущим.
	ErrInconsistentTimestamp = models.ErrInconsistentTimestamp
)

// Repository методы хранилища, нужные сервису подписок.
type Repository interface {
	// WithinTx выполняет fn одной единицей работы.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// GetSubscription возвращает состояние подписки и now() хранилища, nil если пользователя нет.
	GetSubscription(ctx context.Context, userID int64, forUpdate bool) (*models.SubscriptionState, error)
	// StartSubscription включает подписку на days дней от now().
	StartSubscription(ctx context.Context, userID int64, days int) error
	// StopSubscription выключает подписку и очищает окончание.
	StopSubscription(ctx context.Context, userID int64) error
	// AppendAction добавляет запись в журнал.
	AppendAction(ctx context.Context, userID int64, actionType, details string) (*models.Action, error)
	// ListExpiredSubscriptions возвращает пользователей с наступившим конечным окончанием.
	ListExpiredSubscriptions(ctx context.Context, limit int) ([]int64, error)
	// ListInconsistentSubscriptions возвращает пользователей с бесконечным окончанием.
	ListInconsistentSubscriptions(ctx context.Context, limit int) ([]int64, error)
}

// Service реализует переходы состояния подписки.
type Service struct {
	repo      Repository
	log       *slog.Logger
	batchSize int
}

// NewSubscriptionService создаёт сервис. batchSize ограничивает число
// пользователей, обрабатываемых одним вызовом ExpireDue.
func NewSubscriptionService(repo Repository, log *slog.Logger, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{
		repo:      repo,
		log:       log,
		batchSize: batchSize,
	}
}

// Activate включает подписку на days дней начиная с текущего момента хранилища.
// Повторная активация начинает окно заново.
func (s *Service) Activate(ctx context.Context, userID int64, days int) error {
	const op = "subscription.Activate"
	if days < 1 {
		return fmt.Errorf("%s: %w", op, ErrInvalidDuration)
	}

	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.StartSubscription(ctx, userID, days); err != nil {
			return err
		}
		return s.appendChange(ctx, userID, true, days)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionTransitions.WithLabelValues("activate").Inc()
	s.log.Info("subscription activated", sl.UserID(userID), slog.Int("duration_days", days))
	return nil
}

// Deactivate выключает подписку. Запись в журнал добавляется при любом исходном
// состоянии; days сохраняется в ней как есть.
func (s *Service) Deactivate(ctx context.Context, userID int64, days int) error {
	const op = "subscription.Deactivate"

	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		return s.deactivate(ctx, userID, days)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionTransitions.WithLabelValues("deactivate").Inc()
	s.log.Info("subscription deactivated", sl.UserID(userID))
	return nil
}

// IsSubscribed сообщает, активна ли подписка. Истёкшая подписка выключается
// (с записью в журнал) и даёт false.
func (s *Service) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	const op = "subscription.IsSubscribed"

	st, err := s.repo.GetSubscription(ctx, userID, false)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if st == nil || !st.Subscription {
		return false, nil
	}

	expired, err := isExpired(st)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !expired {
		return true, nil
	}

	active, _, err := s.resolveExpired(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return active, nil
}

// ExpireDue выключает до batchSize истёкших подписок и возвращает число выключенных.
// Ошибка одного пользователя не останавливает обработку остальных.
// Подписки с бесконечным окончанием не выключаются, а только попадают в лог.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	const op = "subscription.ExpireDue"

	ids, err := s.repo.ListExpiredSubscriptions(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.reportInconsistent(ctx)

	var (
		resolved int
		errs     []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, changed, err := s.resolveExpired(ctx, id)
		if err != nil {
			s.log.Error("failed to expire subscription", sl.UserID(id), sl.Err(err))
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
			continue
		}
		if changed {
			resolved++
		}
	}
	if len(errs) > 0 {
		return resolved, fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	return resolved, nil
}

func (s *Service) reportInconsistent(ctx context.Context) {
	ids, err := s.repo.ListInconsistentSubscriptions(ctx, s.batchSize)
	if err != nil {
		s.log.Warn("failed to list inconsistent subscriptions", sl.Err(err))
		return
	}
	if len(ids) > 0 {
		s.log.Warn("subscriptions with non-finite end skipped",
			slog.Int("count", len(ids)), slog.Any("user_ids", ids))
	}
}

// resolveExpired перепроверяет подписку под блокировкой строки и выключает её,
// если она всё ещё истёкшая. active сообщает итоговое состояние, changed что
// выключение выполнено этим вызовом.
func (s *Service) resolveExpired(ctx context.Context, userID int64) (active, changed bool, err error) {
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetSubscription(ctx, userID, true)
		if err != nil {
			return err
		}
		if st == nil || !st.Subscription {
			return nil
		}
		expired, err := isExpired(st)
		if err != nil {
			return err
		}
		if !expired {
			active = true
			return nil
		}
		if err := s.deactivate(ctx, userID, DefaultDurationDays); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, false, err
	}

	if changed {
		metrics.SubscriptionTransitions.WithLabelValues("expired").Inc()
		s.log.Info("subscription expired", sl.UserID(userID))
	}
	return active, changed, nil
}

func (s *Service) deactivate(ctx context.Context, userID int64, days int) error {
	if err := s.repo.StopSubscription(ctx, userID); err != nil {
		return err
	}
	return s.appendChange(ctx, userID, false, days)
}

func (s *Service) appendChange(ctx context.Context, userID int64, status bool, days int) error {
	details, err := models.EncodeDetails(models.SubscriptionChangedDetails{
		DurationDays: days,
		NewStatus:    status,
	})
	if err != nil {
		return err
	}
	_, err = s.repo.AppendAction(ctx, userID, models.ActionSubscriptionChanged, details)
	return err
}

// isExpired сравнивает окончание подписки с now() хранилища. Оба значения
// обязаны быть ненулевыми и в UTC, иначе сравнение не выполняется.
func isExpired(st *models.SubscriptionState) (bool, error) {
	if st.End == nil {
		return false, nil
	}
	end := *st.End
	if st.Now.IsZero() || end.IsZero() {
		return false, fmt.Errorf("%w: zero time (now=%s, end=%s)", ErrInconsistentTimestamp, st.Now, end)
	}
	if st.Now.Location() != time.UTC || end.Location() != time.UTC {
		return false, fmt.Errorf("%w: expected UTC, got now=%s end=%s",
			ErrInconsistentTimestamp, st.Now.Location(), end.Location())
	}
	return !st.Now.Before(end), nil
}
