package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CalendarSyncRepository хранение настроек синхронизации календарей
type CalendarSyncRepository struct {
	*base.Repository
}

// NewCalendarSyncRepository создаёт репозиторий настроек синхронизации
func NewCalendarSyncRepository(pool *pgxpool.Pool) *CalendarSyncRepository {
	return &CalendarSyncRepository{Repository: base.NewRepository(pool)}
}

const calendarSyncColumns = `
	id, user_id, provider, calendar_id, access_token, refresh_token,
	token_expires_at, sync_enabled, auto_sync_availability, last_sync, created_at
`

// GetEnabledForAutoSync получает настройки всех пользователей провайдера
// с включённой автосинхронизацией доступности
func (r *CalendarSyncRepository) GetEnabledForAutoSync(ctx context.Context, provider model.ProviderKind) ([]*model.CalendarSyncSettings, error) {
	query := `
		SELECT ` + calendarSyncColumns + `
		FROM calendar_sync
		WHERE provider = $1 AND sync_enabled AND auto_sync_availability
		ORDER BY user_id
	`

	rows, err := r.Query(ctx, query, provider)
	if err != nil {
		return nil, fmt.Errorf("get auto-sync settings: %w", err)
	}
	defer rows.Close()

	var settings []*model.CalendarSyncSettings
	for rows.Next() {
		s, err := scanSyncSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync settings: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, nil
}

// GetByUser получает все настройки синхронизации пользователя
func (r *CalendarSyncRepository) GetByUser(ctx context.Context, userID int64) ([]*model.CalendarSyncSettings, error) {
	query := `
		SELECT ` + calendarSyncColumns + `
		FROM calendar_sync
		WHERE user_id = $1
		ORDER BY provider
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get sync settings by user: %w", err)
	}
	defer rows.Close()

	var settings []*model.CalendarSyncSettings
	for rows.Next() {
		s, err := scanSyncSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync settings: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, nil
}

// GetByUserProvider получает настройки пары (пользователь, провайдер) или nil
func (r *CalendarSyncRepository) GetByUserProvider(ctx context.Context, userID int64, provider model.ProviderKind) (*model.CalendarSyncSettings, error) {
	query := `
		SELECT ` + calendarSyncColumns + `
		FROM calendar_sync
		WHERE user_id = $1 AND provider = $2
	`

	s, err := scanSyncSettings(r.QueryRow(ctx, query, userID, provider))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync settings: %w", err)
	}

	return s, nil
}

// Upsert создаёт или обновляет настройки пары (пользователь, провайдер)
func (r *CalendarSyncRepository) Upsert(ctx context.Context, settings *model.CalendarSyncSettings) error {
	query := `
		INSERT INTO calendar_sync (user_id, provider, calendar_id, access_token, refresh_token,
			token_expires_at, sync_enabled, auto_sync_availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET
			calendar_id = EXCLUDED.calendar_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			sync_enabled = EXCLUDED.sync_enabled,
			auto_sync_availability = EXCLUDED.auto_sync_availability
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		settings.UserID,
		settings.Provider,
		settings.CalendarID,
		settings.AccessToken,
		settings.RefreshToken,
		settings.TokenExpiresAt,
		settings.SyncEnabled,
		settings.AutoSyncAvailability,
	).Scan(&settings.ID, &settings.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert sync settings: %w", err)
	}

	return nil
}

// UpdateTokens обновляет сохранённые oauth-токены
func (r *CalendarSyncRepository) UpdateTokens(ctx context.Context, userID int64, provider model.ProviderKind, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.ExecAffected(ctx, `
		UPDATE calendar_sync
		SET access_token = $3, refresh_token = $4, token_expires_at = $5
		WHERE user_id = $1 AND provider = $2
	`, userID, provider, accessToken, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return nil
}

// TouchLastSync фиксирует время последней успешной синхронизации
func (r *CalendarSyncRepository) TouchLastSync(ctx context.Context, userID int64, provider model.ProviderKind, at time.Time) error {
	_, err := r.ExecAffected(ctx, `
		UPDATE calendar_sync
		SET last_sync = $3
		WHERE user_id = $1 AND provider = $2
	`, userID, provider, at)
	if err != nil {
		return fmt.Errorf("touch last sync: %w", err)
	}
	return nil
}

// scanSyncSettings читает строку calendar_sync в модель
func scanSyncSettings(row rowScanner) (*model.CalendarSyncSettings, error) {
	var s model.CalendarSyncSettings
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Provider,
		&s.CalendarID,
		&s.AccessToken,
		&s.RefreshToken,
		&s.TokenExpiresAt,
		&s.SyncEnabled,
		&s.AutoSyncAvailability,
		&s.LastSync,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
