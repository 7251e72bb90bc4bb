package model

import "time"

// ProviderKind внешний календарный провайдер
type ProviderKind string

const (
	ProviderGoogle  ProviderKind = "google"
	ProviderOutlook ProviderKind = "outlook"
)

// Providers все поддерживаемые провайдеры
var Providers = [2]ProviderKind{ProviderGoogle, ProviderOutlook}

// BusyInterval занятый период, полученный от внешнего календаря.
// Времена — абсолютные, уже в каноническом часовом поясе сервера
// (конверсию выполняет адаптер провайдера). Никогда не сохраняется:
// существует только на время сверки.
type BusyInterval struct {
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Source ProviderKind `json:"source"`
}

// Valid проверяет что интервал не вырожден
func (b BusyInterval) Valid() bool {
	return !b.Start.IsZero() && !b.End.IsZero() && b.End.After(b.Start)
}

// ClipToDay проецирует занятый период на сутки указанной даты, возвращая
// диапазон минут [0, 1440) и признак пересечения. Периоды, растянутые на
// несколько суток, обрезаются по границам дня.
func (b BusyInterval) ClipToDay(day time.Time) (TimeRange, bool) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	start := b.Start.In(day.Location())
	end := b.End.In(day.Location())
	if !b.Valid() || !start.Before(dayEnd) || !end.After(dayStart) {
		return TimeRange{}, false
	}

	startMin := 0
	if start.After(dayStart) {
		startMin = start.Hour()*60 + start.Minute()
	}
	endMin := MinutesPerDay
	if end.Before(dayEnd) {
		endMin = end.Hour()*60 + end.Minute()
	}
	if endMin <= startMin {
		return TimeRange{}, false
	}
	return TimeRange{StartMin: startMin, EndMin: endMin}, true
}
