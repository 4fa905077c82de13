// Package sl содержит вспомогательные атрибуты для логгера slog,
// чтобы ошибки и идентификаторы пользователей выводились единообразно.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error".
//
//	log.Error("failed to activate subscription", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("<nil>")}
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// UserID возвращает slog.Attr с идентификатором пользователя бота.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}
