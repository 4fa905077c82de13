package models

import (
	"errors"
	"time"
)

// ErrInconsistentTimestamp временные метки подписки нельзя корректно сравнить
// (бесконечность, нулевое значение). Подписка в этом случае не считается истёкшей.
var ErrInconsistentTimestamp = errors.New("inconsistent subscription timestamp")

// SubscriptionState снимок подписки пользователя вместе с текущим временем хранилища.
// Оба времени в UTC.
type SubscriptionState struct {
	UserID       int64
	Subscription bool
	End          *time.Time
	Now          time.Time
}
