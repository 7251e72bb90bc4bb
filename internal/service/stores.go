package service

import (
	"context"
	"time"

	"github.com/gatherly/availability/internal/model"
)

// Узкие контракты хранения, от которых зависят сервисы. Реализации
// на pgx живут в internal/repository; в тестах подставляются фейки.

// AvailabilityStore операции хранения недельной доступности
type AvailabilityStore interface {
	// GetByUserWeek возвращает запись недели или nil, если её нет
	GetByUserWeek(ctx context.Context, userID int64, week model.WeekKey) (*model.AvailabilityRecord, error)

	// Upsert атомарно создаёт или полностью перезаписывает запись недели
	Upsert(ctx context.Context, record *model.AvailabilityRecord) error

	// UpsertVersioned как Upsert, но запись обновляется только если её
	// версия (updated_at) совпадает с record.UpdatedAt; при расхождении
	// возвращается model.ErrPersistenceConflict
	UpsertVersioned(ctx context.Context, record *model.AvailabilityRecord) error
}

// DefaultScheduleStore операции хранения шаблонов доступности
type DefaultScheduleStore interface {
	// GetActive возвращает активный шаблон пользователя или nil
	GetActive(ctx context.Context, userID int64) (*model.DefaultSchedule, error)

	// CreateActive атомарно деактивирует прежние шаблоны пользователя
	// и вставляет новый активный
	CreateActive(ctx context.Context, schedule *model.DefaultSchedule) error
}

// CalendarSyncStore операции хранения настроек синхронизации календарей
type CalendarSyncStore interface {
	GetEnabledForAutoSync(ctx context.Context, provider model.ProviderKind) ([]*model.CalendarSyncSettings, error)
	GetByUser(ctx context.Context, userID int64) ([]*model.CalendarSyncSettings, error)
	TouchLastSync(ctx context.Context, userID int64, provider model.ProviderKind, at time.Time) error
}
