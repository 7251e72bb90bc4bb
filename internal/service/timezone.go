package service

import (
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

// TimezoneProjector переводит сохранённые диапазоны доступности из
// канонического пояса сервера в пояс зрителя на момент чтения. В базе
// всегда лежит серверный пояс; проекция — чисто презентационный слой.
type TimezoneProjector struct {
	serverLocation *time.Location
	logger         *zap.Logger
	now            func() time.Time
}

// NewTimezoneProjector создаёт проектор с каноническим поясом сервера
func NewTimezoneProjector(serverLocation *time.Location, logger *zap.Logger) *TimezoneProjector {
	return &TimezoneProjector{
		serverLocation: serverLocation,
		logger:         logger,
		now:            time.Now,
	}
}

// ProjectedRange диапазон, отформатированный для показа зрителю
type ProjectedRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Project переводит диапазоны в пояс targetTZ и форматирует их в
// 12-часовом виде. Неизвестный идентификатор пояса не считается ошибкой:
// диапазоны форматируются в серверном поясе с предупреждением в логе.
func (p *TimezoneProjector) Project(ranges []model.TimeRange, targetTZ string) []ProjectedRange {
	loc := p.serverLocation
	if targetTZ != "" {
		parsed, err := time.LoadLocation(targetTZ)
		if err != nil {
			p.logger.Warn("unknown timezone, falling back to server timezone",
				zap.String("timezone", targetTZ),
				zap.Error(err))
		} else {
			loc = parsed
		}
	}

	projected := make([]ProjectedRange, 0, len(ranges))
	for _, tr := range ranges {
		projected = append(projected, ProjectedRange{
			Start: p.projectMinute(tr.StartMin, loc),
			End:   p.projectMinute(tr.EndMin, loc),
		})
	}
	return projected
}

// projectMinute переводит минуту серверных суток в пояс loc. Смещение
// считается от сегодняшней даты, поэтому проекция учитывает текущий
// режим летнего времени обеих зон.
func (p *TimezoneProjector) projectMinute(minute int, loc *time.Location) string {
	if loc == p.serverLocation {
		return model.FromMinutes(minute)
	}

	now := p.now().In(p.serverLocation)
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.serverLocation)
	local := anchor.Add(time.Duration(minute) * time.Minute).In(loc)
	return model.FromMinutes(local.Hour()*60 + local.Minute())
}
