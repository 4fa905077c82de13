// Package models содержит доменные структуры хранилища бота:
// пользователя, задачу обработки фото, запись журнала действий и сводную статистику.
package models

import "time"

// User представляет пользователя бота. Идентификатор назначается мессенджером.
// Все временные метки хранятся в UTC.
type User struct {
	UserID            int64      `json:"user_id"`            // Идентификатор пользователя в мессенджере
	Username          *string    `json:"username"`           // Отображаемое имя (может отсутствовать)
	FullName          string     `json:"full_name"`          // Полное имя, по умолчанию пустое
	Subscription      bool       `json:"subscription"`       // Флаг подписки в хранилище
	SubscriptionStart *time.Time `json:"subscription_start"` // Начало окна подписки
	SubscriptionEnd   *time.Time `json:"subscription_end"`   // Конец окна подписки, nil при выключенной подписке
	CreatedAt         time.Time  `json:"created_at"`         // Время первого обращения
	LastActive        time.Time  `json:"last_active"`        // Время последнего обращения
}
