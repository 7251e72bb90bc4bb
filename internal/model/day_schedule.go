package model

import (
	"encoding/json"
	"fmt"
)

// Дефолтный диапазон 9:00-17:00, который исторически подставлялся
// при ручном редактировании без явного времени.
var defaultDayRange = TimeRange{StartMin: 540, EndMin: 1020}

// DaySchedule доступность пользователя в конкретный день недели.
// Инвариант: Available == false влечёт пустой Ranges, Available == true
// влечёт непустой Ranges. Список всегда канонический (отсортирован,
// без пересечений).
type DaySchedule struct {
	Available bool
	Ranges    []TimeRange
}

// NewDaySchedule строит день с приведением диапазонов к канонической
// форме и соблюдением инварианта
func NewDaySchedule(available bool, ranges []TimeRange) DaySchedule {
	if !available {
		return DaySchedule{}
	}
	normalized := NormalizeRanges(ranges)
	if len(normalized) == 0 {
		return DaySchedule{}
	}
	return DaySchedule{Available: true, Ranges: normalized}
}

// AllDaySchedule день, доступный целиком
func AllDaySchedule() DaySchedule {
	return DaySchedule{Available: true, Ranges: []TimeRange{{StartMin: 0, EndMin: MinutesPerDay}}}
}

// AllDay true если день доступен целиком
func (d DaySchedule) AllDay() bool {
	return d.Available && len(d.Ranges) == 1 && d.Ranges[0].IsAllDay()
}

// Clone возвращает глубокую копию дня
func (d DaySchedule) Clone() DaySchedule {
	c := DaySchedule{Available: d.Available}
	if d.Ranges != nil {
		c.Ranges = make([]TimeRange, len(d.Ranges))
		copy(c.Ranges, d.Ranges)
	}
	return c
}

// Equal сравнивает дни по значению
func (d DaySchedule) Equal(other DaySchedule) bool {
	if d.Available != other.Available || len(d.Ranges) != len(other.Ranges) {
		return false
	}
	for i := range d.Ranges {
		if d.Ranges[i] != other.Ranges[i] {
			return false
		}
	}
	return true
}

// dayScheduleJSON историческая форма хранения дня. Поля start/end дублируют
// первый элемент time_ranges для старых потребителей одиночного диапазона —
// эта избыточность поддерживается при каждой записи.
type dayScheduleJSON struct {
	Available  bool            `json:"available"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	TimeRanges []timeRangeJSON `json:"time_ranges"`
	AllDay     bool            `json:"all_day"`
}

type timeRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON сериализует день в историческую форму хранения
func (d DaySchedule) MarshalJSON() ([]byte, error) {
	out := dayScheduleJSON{
		Available:  d.Available,
		Start:      FromMinutes(defaultDayRange.StartMin),
		End:        FromMinutes(defaultDayRange.EndMin),
		TimeRanges: make([]timeRangeJSON, 0, len(d.Ranges)),
		AllDay:     d.AllDay(),
	}
	for _, r := range d.Ranges {
		out.TimeRanges = append(out.TimeRanges, timeRangeJSON{
			Start: FromMinutes(r.StartMin),
			End:   FromMinutes(r.EndMin),
		})
	}
	if len(out.TimeRanges) > 0 {
		out.Start = out.TimeRanges[0].Start
		out.End = out.TimeRanges[0].End
	}
	return json.Marshal(out)
}

// UnmarshalJSON разбирает день из любой из исторических форм хранения и
// нормализует его к типизированной модели. Это явный шаг миграции при
// загрузке: старые записи с одиночным start/end без time_ranges читаются
// так же, как и текущая форма.
func (d *DaySchedule) UnmarshalJSON(b []byte) error {
	var raw dayScheduleJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode day schedule: %w", err)
	}

	if !raw.Available {
		*d = DaySchedule{}
		return nil
	}
	if raw.AllDay {
		*d = AllDaySchedule()
		return nil
	}

	var ranges []TimeRange
	if len(raw.TimeRanges) > 0 {
		for _, tr := range raw.TimeRanges {
			r, ok := decodeStoredRange(tr.Start, tr.End)
			if ok {
				ranges = append(ranges, r)
			}
		}
	} else {
		// старый формат: одиночный диапазон start/end
		r, ok := decodeStoredRange(raw.Start, raw.End)
		if ok {
			ranges = append(ranges, r)
		}
	}

	*d = NewDaySchedule(true, ranges)
	return nil
}

// decodeStoredRange разбирает пару строк времени из хранимой записи.
// Пустые значения заменяются историческим дефолтом 9:00-17:00; конец
// "12:00 AM" трактуется как полночь в конце дня.
func decodeStoredRange(start, end string) (TimeRange, bool) {
	if start == "" {
		start = "09:00"
	}
	if end == "" {
		end = "17:00"
	}
	startMin, err := ToMinutes(start)
	if err != nil {
		return TimeRange{}, false
	}
	endMin, err := ToMinutes(end)
	if err != nil {
		return TimeRange{}, false
	}
	if endMin == 0 {
		endMin = MinutesPerDay
	}
	r := TimeRange{StartMin: startMin, EndMin: endMin}
	return r, r.Valid()
}
