// Package metrics содержит метрики prometheus хранилища бота
// и трассировщик запросов pgx, который их заполняет.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBQueryDuration длительность запросов к PostgreSQL по типу запроса.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photobot_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal количество ошибок запросов по типу запроса.
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobot_db_errors_total",
			Help: "Total database query errors",
		},
		[]string{"query"},
	)

	// SubscriptionTransitions переходы состояния подписки.
	// reason: activate, deactivate, expired.
	SubscriptionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobot_subscription_transitions_total",
			Help: "Subscription state transitions by reason",
		},
		[]string{"reason"},
	)

	// CacheRequests обращения к кешу статистики. result: hit, miss, error.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobot_stats_cache_requests_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"},
	)

	// EventsPublished публикации событий журнала. status: ok, error.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobot_events_published_total",
			Help: "Action events published to the broker by status",
		},
		[]string{"status"},
	)
)
