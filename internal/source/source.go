package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/availability/internal/model"
	"golang.org/x/oauth2"
)

// BusySource интерфейс внешнего источника занятых интервалов. Контракт:
//   - интервалы возвращаются уже в каноническом часовом поясе сервера;
//   - "нет конфликтов" — пустой список, не ошибка; ошибка только при
//     сбое сети или авторизации;
//   - статусы free/tentative/workingElsewhere не считаются занятостью,
//     учитываются только busy и out of office.
type BusySource interface {
	Provider() model.ProviderKind
	GetBusyIntervals(ctx context.Context, userID int64, start, end time.Time) ([]model.BusyInterval, error)
}

// SettingsStore доступ к сохранённым настройкам синхронизации провайдера
type SettingsStore interface {
	GetByUserProvider(ctx context.Context, userID int64, provider model.ProviderKind) (*model.CalendarSyncSettings, error)
}

// TokenProvider выдаёт oauth2-токены, сохранённые для пользователя.
// Получение и обновление токенов (OAuth-флоу) — ответственность внешнего
// слоя; адаптеры только потребляют уже сохранённые токены.
type TokenProvider interface {
	TokenSource(ctx context.Context, userID int64, provider model.ProviderKind) (oauth2.TokenSource, string, error)
}

// StoredTokenProvider строит oauth2.TokenSource из настроек синхронизации
// в базе. Возвращает model.ErrNotConnected, если календарь не подключён.
type StoredTokenProvider struct {
	store SettingsStore
}

// NewStoredTokenProvider создаёт провайдер токенов поверх хранилища настроек
func NewStoredTokenProvider(store SettingsStore) *StoredTokenProvider {
	return &StoredTokenProvider{store: store}
}

// TokenSource возвращает источник токенов и идентификатор календаря
func (p *StoredTokenProvider) TokenSource(ctx context.Context, userID int64, provider model.ProviderKind) (oauth2.TokenSource, string, error) {
	settings, err := p.store.GetByUserProvider(ctx, userID, provider)
	if err != nil {
		return nil, "", fmt.Errorf("get sync settings: %w", err)
	}
	if settings == nil || !settings.SyncEnabled {
		return nil, "", fmt.Errorf("%w: user %d, provider %s", model.ErrNotConnected, userID, provider)
	}
	if settings.AccessToken == "" {
		return nil, "", fmt.Errorf("%w: no access token for user %d, provider %s", model.ErrSourceUnavailable, userID, provider)
	}

	token := &oauth2.Token{
		AccessToken:  settings.AccessToken,
		RefreshToken: settings.RefreshToken,
		TokenType:    "Bearer",
	}
	if settings.TokenExpiresAt != nil {
		token.Expiry = *settings.TokenExpiresAt
	}

	calendarID := settings.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return oauth2.StaticTokenSource(token), calendarID, nil
}
