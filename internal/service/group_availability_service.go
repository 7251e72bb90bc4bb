package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

// DefaultScanDaysAhead горизонт поиска общих свободных дат в днях
const DefaultScanDaysAhead = 7

// GroupAvailabilityService находит пересечения доступности участников
// группы. Все вычисления идут в каноническом поясе сервера; проекция в
// пояс зрителя выполняется отдельно на выводе.
type GroupAvailabilityService struct {
	availabilityStore AvailabilityStore
	serverLocation    *time.Location
	logger            *zap.Logger
	now               func() time.Time
}

// NewGroupAvailabilityService создаёт сервис групповой доступности
func NewGroupAvailabilityService(availabilityStore AvailabilityStore, serverLocation *time.Location, logger *zap.Logger) *GroupAvailabilityService {
	return &GroupAvailabilityService{
		availabilityStore: availabilityStore,
		serverLocation:    serverLocation,
		logger:            logger,
		now:               time.Now,
	}
}

// UpcomingFreeDates возвращает ближайшие даты, в которые доступны все
// участники. Сканируются daysAhead дней начиная с сегодняшнего; день
// подходит, только если у каждого участника есть данные недели и день
// помечен доступным.
func (s *GroupAvailabilityService) UpcomingFreeDates(ctx context.Context, memberIDs []int64, daysAhead int) ([]time.Time, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	if daysAhead <= 0 {
		daysAhead = DefaultScanDaysAhead
	}

	now := s.now().In(s.serverLocation)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.serverLocation)

	var free []time.Time
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		ok, err := s.allAvailableOn(ctx, memberIDs, date)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, date)
		}
	}

	s.logger.Debug("scanned group availability",
		zap.Int("members", len(memberIDs)),
		zap.Int("days_ahead", daysAhead),
		zap.Int("free_dates", len(free)))
	return free, nil
}

// CommonFreeRanges возвращает пересечение доступных диапазонов всех
// участников в конкретную дату. Пустой результат означает, что общего
// окна нет.
func (s *GroupAvailabilityService) CommonFreeRanges(ctx context.Context, memberIDs []int64, date time.Time) ([]model.TimeRange, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}

	date = date.In(s.serverLocation)
	week := model.NewWeekKey(date)
	name := model.DayNameFor(date)

	var common []model.TimeRange
	for i, userID := range memberIDs {
		record, err := s.availabilityStore.GetByUserWeek(ctx, userID, week)
		if err != nil {
			return nil, fmt.Errorf("get availability for user %d: %w", userID, err)
		}

		day, ok := record.Day(name)
		if !ok || !day.Available {
			return nil, nil
		}

		if i == 0 {
			common = model.NormalizeRanges(day.Ranges)
		} else {
			common = model.IntersectRanges(common, day.Ranges)
		}
		if len(common) == 0 {
			return nil, nil
		}
	}
	return common, nil
}

// allAvailableOn true если все участники доступны в дату
func (s *GroupAvailabilityService) allAvailableOn(ctx context.Context, memberIDs []int64, date time.Time) (bool, error) {
	week := model.NewWeekKey(date)
	for _, userID := range memberIDs {
		record, err := s.availabilityStore.GetByUserWeek(ctx, userID, week)
		if err != nil {
			return false, fmt.Errorf("get availability for user %d: %w", userID, err)
		}
		if !record.AvailableOn(date) {
			return false, nil
		}
	}
	return true, nil
}
