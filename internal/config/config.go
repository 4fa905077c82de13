// Package config предоставляет структуры и функции для загрузки настроек хранилища бота.
// Настройки читаются из YAML-файла (CONFIG_PATH) и/или переменных окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	Database `yaml:"database"`
	Redis    `yaml:"redis"`
	RabbitMQ `yaml:"rabbitmq"`
	Expiry   `yaml:"expiry"`
	Metrics  `yaml:"metrics"`
}

// Database структура для настройки пула соединений с PostgreSQL
type Database struct {
	Host           string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string        `yaml:"user" env:"DB_USER"`
	Password       string        `yaml:"password" env:"DB_PASS"`
	Name           string        `yaml:"name" env:"DB_NAME"`
	SSLMode        string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	PoolSize       int32         `yaml:"pool_size" env:"DB_POOL_SIZE" env-default:"10"`
	MinConns       int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"1"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" env:"DB_ACQUIRE_TIMEOUT" env-default:"5s"`
}

// Redis структура для настройки кеша статистики. Пустой адрес отключает кеш.
type Redis struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
	StatsTTL    time.Duration `yaml:"stats_ttl" env:"REDIS_STATS_TTL" env-default:"5m"`
}

// RabbitMQ структура для публикации событий журнала действий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"photobot.actions"`
	MaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Expiry структура для настройки фоновой проверки истёкших подписок
type Expiry struct {
	Schedule  string `yaml:"schedule" env:"EXPIRY_SCHEDULE" env-default:"@every 1m"`
	BatchSize int    `yaml:"batch_size" env:"EXPIRY_BATCH_SIZE" env-default:"100"`
}

// Metrics структура для адреса, на котором отдаются метрики prometheus
type Metrics struct {
	Address string `yaml:"address" env:"METRICS_ADDRESS" env-default:":9090"`
}

// Load читает конфиг из файла CONFIG_PATH (если задан) и переменных окружения.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Database:\n"+
			"  Host: %s\n"+
			"  Port: %d\n"+
			"  User: %s\n"+
			"  Name: %s\n"+
			"  PoolSize: %d\n"+
			"  AcquireTimeout: %s\n"+
			"Redis:\n"+
			"  Address: %s\n"+
			"  StatsTTL: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"Expiry:\n"+
			"  Schedule: %s\n"+
			"Metrics:\n"+
			"  Address: %s\n",
		c.Env,
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Name,
		c.PoolSize,
		c.AcquireTimeout,
		c.Redis.Address,
		c.StatsTTL,
		c.Exchange,
		c.Schedule,
		c.Metrics.Address,
	)
}
