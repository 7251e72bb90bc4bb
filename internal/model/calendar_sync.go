package model

import "time"

// CalendarSyncSettings настройки синхронизации внешнего календаря для
// пары (пользователь, провайдер). Состояние каденции синхронизации
// (last_sync) хранится здесь, в базе, а не в памяти процесса.
type CalendarSyncSettings struct {
	ID                   int64        `json:"id"`
	UserID               int64        `json:"user_id"`
	Provider             ProviderKind `json:"provider"`
	CalendarID           string       `json:"calendar_id"`
	AccessToken          string       `json:"-"`
	RefreshToken         string       `json:"-"`
	TokenExpiresAt       *time.Time   `json:"token_expires_at"`
	SyncEnabled          bool         `json:"sync_enabled"`
	AutoSyncAvailability bool         `json:"auto_sync_availability"`
	LastSync             *time.Time   `json:"last_sync"`
	CreatedAt            time.Time    `json:"created_at"`
}

// SyncedRecently true если последняя синхронизация была не раньше чем
// interval назад — такие записи пропускаются плановым проходом
func (s *CalendarSyncSettings) SyncedRecently(interval time.Duration, now time.Time) bool {
	if s.LastSync == nil {
		return false
	}
	return now.Sub(*s.LastSync) < interval
}

// TokenExpired проверяет истечение access-токена
func (s *CalendarSyncSettings) TokenExpired(now time.Time) bool {
	if s.TokenExpiresAt == nil {
		return true
	}
	return !now.Before(*s.TokenExpiresAt)
}
