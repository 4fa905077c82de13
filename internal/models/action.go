package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Типы действий в журнале.
const (
	ActionPhotoUploaded       = "photo_uploaded"
	ActionSubscriptionChanged = "subscription_changed"
)

// Action неизменяемая запись журнала действий пользователя.
type Action struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ActionType string    `json:"action_type"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhotoUploadedDetails детали действия photo_uploaded.
// Поля объявлены в алфавитном порядке ключей.
type PhotoUploadedDetails struct {
	FileID  string `json:"file_id"`
	PhotoID int64  `json:"photo_id"`
}

// SubscriptionChangedDetails детали действия subscription_changed.
// Поля объявлены в алфавитном порядке ключей.
type SubscriptionChangedDetails struct {
	DurationDays int  `json:"duration_days"`
	NewStatus    bool `json:"new_status"`
}

// EncodeDetails сериализует детали действия в стабильный JSON.
func EncodeDetails(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("models.EncodeDetails: %w", err)
	}
	return string(b), nil
}
