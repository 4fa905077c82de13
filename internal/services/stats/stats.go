// Package stats собирает сводку по пользователю: профиль и количество фото.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/photobot/store/internal/cache"
	"github.com/photobot/store/internal/lib/sl"
	"github.com/photobot/store/internal/metrics"
	"github.com/photobot/store/internal/models"
)

// Repository методы хранилища, нужные для сводки.
type Repository interface {
	// GetUser возвращает пользователя или nil, если его нет.
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	// CountPhotos возвращает количество фото пользователя.
	CountPhotos(ctx context.Context, userID int64) (int, error)
}

// Cache описывает методы для кэширования сводки.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	// Generation возвращает счётчик инвалидаций, увеличиваемый при каждом изменении пользователя.
	Generation(ctx context.Context, genKey string) (int64, error)
	// SetIfGeneration сохраняет значение, только если счётчик не изменился с момента чтения.
	SetIfGeneration(ctx context.Context, key, genKey string, gen int64, value any, expiration time.Duration) (bool, error)
}

// Service собирает сводку по пользователю. Кеш необязателен.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewStatsService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// GetUserStats возвращает пользователя и количество его фото.
// Для несуществующего пользователя возвращает {nil, 0}.
func (s *Service) GetUserStats(ctx context.Context, userID int64) (*models.Stats, error) {
	const op = "stats.GetUserStats"

	cacheKey := cache.StatsKey(userID)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}
	// Поколение читается до обращения к хранилищу: изменение, зафиксированное
	// во время чтения, увеличит его, и устаревшая сводка не попадёт в кеш.
	genKey := cache.StatsGenerationKey(userID)
	gen, cacheable := s.generation(ctx, genKey)

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return &models.Stats{}, nil
	}

	count, err := s.repo.CountPhotos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.Stats{User: user, PhotoCount: count}
	if cacheable {
		saved, err := s.cache.SetIfGeneration(ctx, cacheKey, genKey, gen, result, s.ttl)
		switch {
		case err != nil:
			s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
		case !saved:
			s.log.Debug("stats changed while reading, not cached", slog.String("key", cacheKey))
		}
	}
	return result, nil
}

func (s *Service) generation(ctx context.Context, genKey string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, genKey)
	if err != nil {
		s.log.Warn("failed to read cache generation", slog.String("key", genKey), sl.Err(err))
		return 0, false
	}
	return gen, true
}

func (s *Service) fromCache(ctx context.Context, key string) (*models.Stats, bool) {
	if s.cache == nil {
		return nil, false
	}
	var result models.Stats
	found, err := s.cache.Get(ctx, key, &result)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
		return nil, false
	}
	if !found || result.User == nil {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &result, true
}
