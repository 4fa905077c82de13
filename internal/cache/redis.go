// Package cache реализует кеш статистики пользователей в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/photobot/store/internal/config"
	"github.com/photobot/store/internal/lib/sl"
)

type Cache struct {
	Db  *redis.Client
	log *slog.Logger
}

// StatsKey ключ кешированной статистики пользователя.
func StatsKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}

// StatsGenerationKey счётчик инвалидаций статистики пользователя.
func StatsGenerationKey(userID int64) string {
	return fmt.Sprintf("stats:gen:%d", userID)
}

// errGenerationChanged значение устарело до записи.
var errGenerationChanged = errors.New("generation changed")

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.Redis, log *slog.Logger) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, log: log}, nil
}

// Get читает значение по ключу в result. false означает промах.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Generation возвращает текущее значение счётчика genKey, 0 если его нет.
func (c *Cache) Generation(ctx context.Context, genKey string) (int64, error) {
	const op = "cache.Generation"
	gen, err := c.Db.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return gen, nil
}

// SetIfGeneration записывает значение, только если счётчик genKey всё ещё равен gen.
// false означает, что за время чтения данных произошла инвалидация и запись пропущена.
func (c *Cache) SetIfGeneration(ctx context.Context, key, genKey string, gen int64, value any, expiration time.Duration) (bool, error) {
	const op = "cache.SetIfGeneration"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	err = c.Db.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errGenerationChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonData, expiration)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errGenerationChanged), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// UserChanged сбрасывает статистику пользователя после зафиксированного изменения
// и увеличивает счётчик поколения, чтобы параллельное чтение не вернуло её в кеш.
func (c *Cache) UserChanged(ctx context.Context, userID int64) {
	_, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, StatsGenerationKey(userID))
		pipe.Del(ctx, StatsKey(userID))
		return nil
	})
	if err != nil && c.log != nil {
		c.log.Warn("failed to invalidate stats cache", sl.UserID(userID), sl.Err(err))
	}
}

func (c *Cache) Close() error {
	return c.Db.Close()
}
