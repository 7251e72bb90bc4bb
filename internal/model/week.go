package model

import (
	"fmt"
	"time"
)

// DayName название дня недели в нижнем регистре — ключ дня в availability_data
type DayName string

const (
	DayMonday    DayName = "monday"
	DayTuesday   DayName = "tuesday"
	DayWednesday DayName = "wednesday"
	DayThursday  DayName = "thursday"
	DayFriday    DayName = "friday"
	DaySaturday  DayName = "saturday"
	DaySunday    DayName = "sunday"
)

// DayNames порядок дней недели начиная с понедельника
var DayNames = [7]DayName{
	DayMonday,
	DayTuesday,
	DayWednesday,
	DayThursday,
	DayFriday,
	DaySaturday,
	DaySunday,
}

// DayNameFor возвращает DayName для указанной даты
func DayNameFor(t time.Time) DayName {
	// time.Weekday: Sunday = 0
	idx := (int(t.Weekday()) + 6) % 7
	return DayNames[idx]
}

// WeekKey канонический идентификатор календарной недели: дата понедельника,
// нормализованная к полуночи UTC. Два WeekKey равны тогда и только тогда,
// когда обозначают один и тот же понедельник.
type WeekKey struct {
	Monday time.Time
}

// NewWeekKey возвращает WeekKey недели, содержащей дату d
func NewWeekKey(d time.Time) WeekKey {
	daysSinceMonday := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -daysSinceMonday)
	return WeekKey{
		Monday: time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// AddWeeks возвращает WeekKey на n недель вперёд
func (k WeekKey) AddWeeks(n int) WeekKey {
	return WeekKey{Monday: k.Monday.AddDate(0, 0, 7*n)}
}

// Day возвращает дату дня недели по смещению от понедельника (0-6)
func (k WeekKey) Day(offset int) time.Time {
	return k.Monday.AddDate(0, 0, offset)
}

// DayIn возвращает полночь дня недели в указанном часовом поясе
func (k WeekKey) DayIn(offset int, loc *time.Location) time.Time {
	d := k.Day(offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// Sunday возвращает дату последнего дня недели
func (k WeekKey) Sunday() time.Time {
	return k.Day(6)
}

// Equal проверяет что оба ключа обозначают один понедельник
func (k WeekKey) Equal(other WeekKey) bool {
	return k.Monday.Equal(other.Monday)
}

// Before сравнивает недели по порядку
func (k WeekKey) Before(other WeekKey) bool {
	return k.Monday.Before(other.Monday)
}

// String возвращает дату понедельника в формате ISO
func (k WeekKey) String() string {
	return k.Monday.Format("2006-01-02")
}

// ParseWeekKey разбирает дату ISO и нормализует её к понедельнику недели
func ParseWeekKey(s string) (WeekKey, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return WeekKey{}, fmt.Errorf("parse week key %q: %w", s, err)
	}
	return NewWeekKey(d), nil
}
