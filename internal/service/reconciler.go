package service

import (
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

// DefaultMinRangeMinutes минимальная длительность диапазона, переживающего
// вычитание занятых интервалов
const DefaultMinRangeMinutes = 30

// Reconciler пересчитывает доступность дня после вычитания занятых
// интервалов внешних календарей. Правило: синхронизация только сужает
// заявленную доступность и никогда не расширяет её — день, помеченный
// пользователем как недоступный, остаётся недоступным при любых занятых
// интервалах.
type Reconciler struct {
	minRangeMinutes int
	logger          *zap.Logger
}

// NewReconciler создаёт Reconciler с порогом минимальной длительности.
// Порог — единая настройка движка (MIN_RANGE_MINUTES); значения <= 0
// заменяются дефолтом.
func NewReconciler(minRangeMinutes int, logger *zap.Logger) *Reconciler {
	if minRangeMinutes <= 0 {
		minRangeMinutes = DefaultMinRangeMinutes
	}
	return &Reconciler{
		minRangeMinutes: minRangeMinutes,
		logger:          logger,
	}
}

// SubtractBusy вычитает занятые диапазоны из доступных. Каждый исходный
// диапазон последовательно режется каждым занятым интервалом; пересекающиеся
// занятые интервалы от разных источников при этом действуют как объединение,
// без лишних двойных разрезов. Остатки короче порога отбрасываются,
// результат приводится к канонической форме.
func (r *Reconciler) SubtractBusy(ranges, busy []model.TimeRange) []model.TimeRange {
	var result []model.TimeRange

	for _, tr := range ranges {
		current := []model.TimeRange{tr}

		for _, b := range busy {
			var next []model.TimeRange
			for _, c := range current {
				if b.EndMin <= c.StartMin || b.StartMin >= c.EndMin {
					// нет пересечения
					next = append(next, c)
					continue
				}
				if c.StartMin < b.StartMin {
					next = append(next, model.TimeRange{StartMin: c.StartMin, EndMin: b.StartMin})
				}
				if b.EndMin < c.EndMin {
					next = append(next, model.TimeRange{StartMin: b.EndMin, EndMin: c.EndMin})
				}
			}
			current = next
		}

		for _, c := range current {
			if c.Duration() >= r.minRangeMinutes {
				result = append(result, c)
			}
		}
	}

	return model.NormalizeRanges(result)
}

// ReconcileWeek пересчитывает все дни недели по занятым интервалам,
// объединённым со всех источников. Существующие данные не мутируются —
// возвращается новая карта.
//
// Политика по дням:
//   - день без данных остаётся недоступным (синхронизация не добавляет
//     доступность);
//   - день с available=false проходит насквозь без изменений;
//   - день без занятых интервалов остаётся байт-в-байт прежним
//     (идемпотентность повторного прохода);
//   - иначе — вычитание, и если диапазонов не осталось, день становится
//     недоступным.
func (r *Reconciler) ReconcileWeek(existing model.WeekData, week model.WeekKey, loc *time.Location, busy []model.BusyInterval) model.WeekData {
	result := make(model.WeekData, len(model.DayNames))

	for offset, name := range model.DayNames {
		date := week.DayIn(offset, loc)
		dayBusy := r.clipBusyToDay(busy, date)

		day, hasData := existing.Day(name)
		if !hasData {
			result[name] = model.DaySchedule{}
			continue
		}
		if !day.Available {
			result[name] = day.Clone()
			continue
		}
		if len(dayBusy) == 0 {
			result[name] = day.Clone()
			continue
		}

		remaining := r.SubtractBusy(day.Ranges, dayBusy)
		if len(remaining) == 0 {
			r.logger.Debug("day fully busy after reconciliation",
				zap.String("week", week.String()),
				zap.String("day", string(name)))
			result[name] = model.DaySchedule{}
			continue
		}
		result[name] = model.DaySchedule{Available: true, Ranges: remaining}
	}

	return result
}

// SetDay обновляет день записи вручную (путь ручного редактирования, без
// занятых интервалов). Диапазоны приводятся к канонической форме, инвариант
// DaySchedule соблюдается; пустой список при available=true заменяется
// историческим дефолтом 9:00-17:00.
func (r *Reconciler) SetDay(record *model.AvailabilityRecord, name model.DayName, available bool, ranges []model.TimeRange, allDay bool) {
	if record.Days == nil {
		record.Days = model.WeekData{}
	}

	switch {
	case !available:
		record.Days[name] = model.DaySchedule{}
	case allDay:
		record.Days[name] = model.AllDaySchedule()
	default:
		day := model.NewDaySchedule(true, ranges)
		if !day.Available {
			day = model.NewDaySchedule(true, []model.TimeRange{{StartMin: 540, EndMin: 1020}})
		}
		record.Days[name] = day
	}
}

// clipBusyToDay проецирует занятые интервалы на сутки даты. Невалидные
// (вырожденные) интервалы пропускаются с логом и не срывают сверку дня.
func (r *Reconciler) clipBusyToDay(busy []model.BusyInterval, date time.Time) []model.TimeRange {
	var clipped []model.TimeRange
	for _, b := range busy {
		if !b.Valid() {
			r.logger.Warn("skipping malformed busy interval",
				zap.Time("start", b.Start),
				zap.Time("end", b.End),
				zap.String("source", string(b.Source)))
			continue
		}
		if tr, ok := b.ClipToDay(date); ok {
			clipped = append(clipped, tr)
		}
	}
	return clipped
}
