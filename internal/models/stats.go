package models

// Stats сводка по пользователю. User равен nil, если пользователь не найден.
type Stats struct {
	User       *User `json:"user"`
	PhotoCount int   `json:"photo_count"`
}
