package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/availability/internal/metrics"
	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

// DefaultApplyWeeks горизонт применения шаблона в неделях
const DefaultApplyWeeks = 52

// ApplyStats итог применения шаблона к будущим неделям
type ApplyStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// DefaultScheduleService управляет шаблонами доступности и раскатывает
// их на будущие недели. Применение — полная перезапись: недельная запись
// становится копией шаблона независимо от прежнего содержимого, поэтому
// повторное применение того же шаблона ничего не меняет.
type DefaultScheduleService struct {
	scheduleStore     DefaultScheduleStore
	availabilityStore AvailabilityStore
	serverLocation    *time.Location
	applyWeeks        int
	logger            *zap.Logger
	now               func() time.Time
}

// NewDefaultScheduleService создаёт сервис шаблонов
func NewDefaultScheduleService(
	scheduleStore DefaultScheduleStore,
	availabilityStore AvailabilityStore,
	serverLocation *time.Location,
	applyWeeks int,
	logger *zap.Logger,
) *DefaultScheduleService {
	if applyWeeks <= 0 {
		applyWeeks = DefaultApplyWeeks
	}
	return &DefaultScheduleService{
		scheduleStore:     scheduleStore,
		availabilityStore: availabilityStore,
		serverLocation:    serverLocation,
		applyWeeks:        applyWeeks,
		logger:            logger,
		now:               time.Now,
	}
}

// GetActive возвращает активный шаблон пользователя или nil
func (s *DefaultScheduleService) GetActive(ctx context.Context, userID int64) (*model.DefaultSchedule, error) {
	schedule, err := s.scheduleStore.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active schedule: %w", err)
	}
	return schedule, nil
}

// SaveAsDefault сохраняет недельную раскладку как активный шаблон
// пользователя и сразу применяет его к будущим неделям. Прежние шаблоны
// деактивируются атомарно с созданием нового.
func (s *DefaultScheduleService) SaveAsDefault(ctx context.Context, userID int64, days model.WeekData) (ApplyStats, error) {
	normalized := make(model.WeekData, len(days))
	for name, day := range days {
		normalized[name] = model.NewDaySchedule(day.Available, day.Ranges)
	}

	schedule := &model.DefaultSchedule{
		UserID:   userID,
		Name:     model.DefaultScheduleName,
		Days:     normalized,
		IsActive: true,
	}
	if err := s.scheduleStore.CreateActive(ctx, schedule); err != nil {
		return ApplyStats{}, fmt.Errorf("create default schedule: %w", err)
	}

	s.logger.Info("default schedule saved",
		zap.Int64("user_id", userID),
		zap.Int64("schedule_id", schedule.ID))

	return s.ApplyToFutureWeeks(ctx, userID, s.applyWeeks)
}

// ApplyToFutureWeeks перезаписывает недели шаблоном пользователя начиная
// с текущей. Смещения идут от 0 до weekCount включительно, то есть
// weekCount+1 неделя. Ошибка одной недели логируется и считается, но не
// прерывает остальные.
func (s *DefaultScheduleService) ApplyToFutureWeeks(ctx context.Context, userID int64, weekCount int) (ApplyStats, error) {
	schedule, err := s.scheduleStore.GetActive(ctx, userID)
	if err != nil {
		return ApplyStats{}, fmt.Errorf("get active schedule: %w", err)
	}
	if schedule == nil {
		return ApplyStats{}, fmt.Errorf("user %d has no active default schedule", userID)
	}
	if weekCount <= 0 {
		weekCount = s.applyWeeks
	}

	current := model.NewWeekKey(s.now().In(s.serverLocation))

	var stats ApplyStats
	for offset := 0; offset <= weekCount; offset++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		week := current.AddWeeks(offset)

		existing, err := s.availabilityStore.GetByUserWeek(ctx, userID, week)
		if err != nil {
			s.logger.Warn("failed to read week before applying schedule",
				zap.Int64("user_id", userID),
				zap.String("week", week.String()),
				zap.Error(err))
			metrics.IncDefaultApplyWeek("error")
			stats.Errors++
			continue
		}

		record := &model.AvailabilityRecord{
			UserID: userID,
			Week:   week,
			Days:   schedule.Days.Clone(),
		}
		if err := s.availabilityStore.Upsert(ctx, record); err != nil {
			s.logger.Warn("failed to apply schedule to week",
				zap.Int64("user_id", userID),
				zap.String("week", week.String()),
				zap.Error(err))
			metrics.IncDefaultApplyWeek("error")
			stats.Errors++
			continue
		}

		metrics.IncDefaultApplyWeek("ok")
		if existing == nil {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	s.logger.Info("default schedule applied",
		zap.Int64("user_id", userID),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("errors", stats.Errors))
	return stats, nil
}
