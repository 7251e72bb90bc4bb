package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gatherly/availability/internal/metrics"
	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/source"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// DefaultLookaheadWeeks горизонт синхронизации в неделях начиная с текущей
const DefaultLookaheadWeeks = 4

// minSyncInterval минимальный интервал между плановыми синхронизациями
// одного пользователя
const minSyncInterval = time.Hour

// SyncStats итог одного прохода синхронизации
type SyncStats struct {
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

// SyncService сверяет недельную доступность пользователей с занятыми
// интервалами внешних календарей. Неделя — единица работы и единица
// отказа: ошибка одного источника или конфликт записи срывает только
// свою неделю, остальные недели и пользователи продолжаются.
type SyncService struct {
	availabilityStore AvailabilityStore
	syncStore         CalendarSyncStore
	sources           []source.BusySource
	reconciler        *Reconciler
	serverLocation    *time.Location
	lookaheadWeeks    int
	logger            *zap.Logger
	now               func() time.Time
}

// NewSyncService создаёт сервис синхронизации
func NewSyncService(
	availabilityStore AvailabilityStore,
	syncStore CalendarSyncStore,
	sources []source.BusySource,
	reconciler *Reconciler,
	serverLocation *time.Location,
	lookaheadWeeks int,
	logger *zap.Logger,
) *SyncService {
	if lookaheadWeeks <= 0 {
		lookaheadWeeks = DefaultLookaheadWeeks
	}
	return &SyncService{
		availabilityStore: availabilityStore,
		syncStore:         syncStore,
		sources:           sources,
		reconciler:        reconciler,
		serverLocation:    serverLocation,
		lookaheadWeeks:    lookaheadWeeks,
		logger:            logger,
		now:               time.Now,
	}
}

// SyncAllUsers выполняет плановый проход по всем пользователям с включённой
// автосинхронизацией. Пользователи, синхронизированные менее часа назад,
// пропускаются. Ошибка одного пользователя не срывает проход.
func (s *SyncService) SyncAllUsers(ctx context.Context) (SyncStats, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	log.Info("starting calendar sync pass")

	now := s.now()
	due := make(map[int64]bool)
	for _, src := range s.sources {
		settings, err := s.syncStore.GetEnabledForAutoSync(ctx, src.Provider())
		if err != nil {
			log.Error("failed to list sync settings",
				zap.String("provider", string(src.Provider())),
				zap.Error(err))
			return SyncStats{}, fmt.Errorf("list auto-sync settings: %w", err)
		}
		for _, st := range settings {
			if st.SyncedRecently(minSyncInterval, now) {
				continue
			}
			due[st.UserID] = true
		}
	}

	var stats SyncStats
	for userID := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.SyncUser(ctx, userID); err != nil {
			log.Warn("user sync failed",
				zap.Int64("user_id", userID),
				zap.Error(err))
			metrics.IncUserSynced("error")
			stats.Errors++
			continue
		}
		metrics.IncUserSynced("ok")
		stats.Synced++
	}

	log.Info("calendar sync pass finished",
		zap.Int("synced", stats.Synced),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// SyncUser синхронизирует доступность одного пользователя на горизонт
// lookaheadWeeks недель начиная с текущей. Сначала собираются активные
// источники пользователя; если подключённых нет, возвращается
// model.ErrNotConnected. Ошибки отдельных недель накапливаются, но не
// прерывают остальные недели. Время последней синхронизации фиксируется
// только при полностью успешном проходе, чтобы лимит каденции не прятал
// устойчивые сбои до следующего планового прохода.
func (s *SyncService) SyncUser(ctx context.Context, userID int64) error {
	settings, err := s.syncStore.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user sync settings: %w", err)
	}

	active := s.activeSources(settings)
	if len(active) == 0 {
		return fmt.Errorf("%w: user %d has no enabled calendar sources", model.ErrNotConnected, userID)
	}

	now := s.now().In(s.serverLocation)
	week := model.NewWeekKey(now)

	var weekErrs []error
	for i := 0; i < s.lookaheadWeeks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := week.AddWeeks(i)
		if err := s.syncWeek(ctx, userID, target, active); err != nil {
			s.logger.Warn("week sync failed",
				zap.Int64("user_id", userID),
				zap.String("week", target.String()),
				zap.Error(err))
			metrics.IncWeekSynced("error")
			weekErrs = append(weekErrs, fmt.Errorf("week %s: %w", target, err))
			continue
		}
		metrics.IncWeekSynced("ok")
	}

	if len(weekErrs) == 0 {
		syncedAt := s.now()
		for _, src := range active {
			if err := s.syncStore.TouchLastSync(ctx, userID, src.Provider(), syncedAt); err != nil {
				s.logger.Warn("failed to record last sync time",
					zap.Int64("user_id", userID),
					zap.String("provider", string(src.Provider())),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("user availability synced",
		zap.Int64("user_id", userID),
		zap.Int("weeks", s.lookaheadWeeks),
		zap.Int("failed_weeks", len(weekErrs)))
	return errors.Join(weekErrs...)
}

// syncWeek сверяет одну неделю: конкурентно забирает занятые интервалы
// со всех источников, пересчитывает дни и атомарно сохраняет результат.
// Ошибка любого источника срывает неделю целиком — частичное объединение
// занятости дало бы ложную доступность.
func (s *SyncService) syncWeek(ctx context.Context, userID int64, week model.WeekKey, active []source.BusySource) error {
	start := week.DayIn(0, s.serverLocation)
	end := start.AddDate(0, 0, 7)

	busy, err := s.fetchBusy(ctx, userID, start, end, active)
	if err != nil {
		return err
	}

	record, err := s.availabilityStore.GetByUserWeek(ctx, userID, week)
	if err != nil {
		return fmt.Errorf("get availability record: %w", err)
	}
	if record == nil {
		// нет заявленной доступности — сужать нечего
		return nil
	}

	reconcileStart := s.now()
	reconciled := s.reconciler.ReconcileWeek(record.Days, week, s.serverLocation, busy)
	metrics.ObserveReconcile(reconcileStart)

	if reconciled.Equal(record.Days) {
		s.logger.Debug("week unchanged after reconciliation",
			zap.Int64("user_id", userID),
			zap.String("week", week.String()))
		return nil
	}

	return s.saveReconciled(ctx, userID, week, busy, reconciled, record.UpdatedAt)
}

// saveReconciled сохраняет пересчитанную неделю с защитой от потерянных
// обновлений: запись пишется только если её версия не изменилась, при
// конфликте делается один повтор с перечитыванием и повторной сверкой
// уже полученных занятых интервалов.
func (s *SyncService) saveReconciled(ctx context.Context, userID int64, week model.WeekKey, busy []model.BusyInterval, days model.WeekData, version time.Time) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(50*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		record := &model.AvailabilityRecord{
			UserID:    userID,
			Week:      week,
			Days:      days,
			UpdatedAt: version,
		}
		err := s.availabilityStore.UpsertVersioned(ctx, record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrPersistenceConflict) {
			return fmt.Errorf("save reconciled week: %w", err)
		}

		s.logger.Info("concurrent modification detected, retrying week",
			zap.Int64("user_id", userID),
			zap.String("week", week.String()))

		fresh, getErr := s.availabilityStore.GetByUserWeek(ctx, userID, week)
		if getErr != nil {
			return fmt.Errorf("reread after conflict: %w", getErr)
		}
		if fresh == nil {
			return nil
		}
		version = fresh.UpdatedAt
		days = s.reconciler.ReconcileWeek(fresh.Days, week, s.serverLocation, busy)
		if days.Equal(fresh.Days) {
			return nil
		}
		return retry.RetryableError(err)
	})
}

// fetchBusy конкурентно собирает занятые интервалы со всех источников и
// объединяет их в один список. Всё или ничего: ошибка любого источника
// возвращается наружу.
func (s *SyncService) fetchBusy(ctx context.Context, userID int64, start, end time.Time, active []source.BusySource) ([]model.BusyInterval, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		busy     []model.BusyInterval
		fetchErr []error
	)

	for _, src := range active {
		wg.Add(1)
		go func(src source.BusySource) {
			defer wg.Done()
			fetchStart := time.Now()
			intervals, err := src.GetBusyIntervals(ctx, userID, start, end)
			metrics.ObserveSourceFetch(string(src.Provider()), fetchStart)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fetchErr = append(fetchErr, fmt.Errorf("%s: %w", src.Provider(), err))
				return
			}
			busy = append(busy, intervals...)
		}(src)
	}
	wg.Wait()

	if len(fetchErr) > 0 {
		return nil, errors.Join(fetchErr...)
	}
	return busy, nil
}

// activeSources оставляет источники, для которых у пользователя включена
// синхронизация и автообновление доступности
func (s *SyncService) activeSources(settings []*model.CalendarSyncSettings) []source.BusySource {
	enabled := make(map[model.ProviderKind]bool, len(settings))
	for _, st := range settings {
		if st.SyncEnabled && st.AutoSyncAvailability {
			enabled[st.Provider] = true
		}
	}

	var active []source.BusySource
	for _, src := range s.sources {
		if enabled[src.Provider()] {
			active = append(active, src)
		}
	}
	return active
}
