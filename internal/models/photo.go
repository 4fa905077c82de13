package models

import "time"

// PhotoStatusPending статус только что загруженного фото.
// Дальнейшие статусы выставляет внешний конвейер обработки.
const PhotoStatusPending = "pending"

// Photo представляет задачу обработки загруженного пользователем фото.
type Photo struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	FileID           string     `json:"file_id"`   // Ссылка на файл в мессенджере
	FilePath         *string    `json:"file_path"` // Локальный путь, если файл скачан
	OriginalFilename *string    `json:"original_filename"`
	Status           string     `json:"status"`
	ResultText       *string    `json:"result_text"`
	ProcessingTime   *int       `json:"processing_time"` // Длительность обработки
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at"` // Выставляется при уходе из pending
}
