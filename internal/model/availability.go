package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// WeekData недельная доступность: карта день недели → расписание дня.
// Дни без записи считаются "нет данных" и по единой политике недоступны.
type WeekData map[DayName]DaySchedule

// Clone возвращает глубокую копию недельных данных
func (w WeekData) Clone() WeekData {
	if w == nil {
		return nil
	}
	c := make(WeekData, len(w))
	for name, day := range w {
		c[name] = day.Clone()
	}
	return c
}

// Equal сравнивает недельные данные по значению. Сравнение семантическое:
// день без записи равен явному недоступному дню, поэтому разреженная карта
// равна своей форме с заполненными недоступными днями.
func (w WeekData) Equal(other WeekData) bool {
	for _, name := range DayNames {
		if !w[name].Equal(other[name]) {
			return false
		}
	}
	return true
}

// Day возвращает расписание дня и признак наличия данных
func (w WeekData) Day(name DayName) (DaySchedule, bool) {
	day, ok := w[name]
	return day, ok
}

// Encode сериализует недельные данные в хранимую JSON-форму.
// Ключи карты сериализуются в отсортированном порядке, поэтому форма
// детерминирована и пригодна для побайтового сравнения.
func (w WeekData) Encode() ([]byte, error) {
	if w == nil {
		w = WeekData{}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode availability data: %w", err)
	}
	return b, nil
}

// DecodeWeekData разбирает недельные данные из любой исторической формы.
// Самая старая форма оборачивала данные в {"timezone": ..., "availability":
// {...}} — обёртка распознаётся и снимается здесь, один раз при загрузке.
func DecodeWeekData(raw []byte) (WeekData, error) {
	if len(raw) == 0 {
		return WeekData{}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode availability data: %w", err)
	}

	if inner, ok := envelope["availability"]; ok {
		if _, hasTZ := envelope["timezone"]; hasTZ {
			return DecodeWeekData(inner)
		}
	}

	data := make(WeekData, len(DayNames))
	for _, name := range DayNames {
		dayRaw, ok := envelope[string(name)]
		if !ok {
			continue
		}
		var day DaySchedule
		if err := json.Unmarshal(dayRaw, &day); err != nil {
			return nil, fmt.Errorf("decode day %s: %w", name, err)
		}
		data[name] = day
	}
	return data, nil
}

// AvailabilityRecord доступность пользователя на одну календарную неделю.
// На пару (user_id, week_start_date) существует не более одной записи;
// запись принадлежит исключительно пользователю. UpdatedAt используется
// как версия при оптимистичной блокировке.
type AvailabilityRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Week      WeekKey   `json:"week_start_date"`
	Days      WeekData  `json:"availability_data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Day возвращает расписание дня недели
func (r *AvailabilityRecord) Day(name DayName) (DaySchedule, bool) {
	if r == nil || r.Days == nil {
		return DaySchedule{}, false
	}
	return r.Days.Day(name)
}

// AvailableOn проверяет доступность пользователя в конкретную дату
func (r *AvailabilityRecord) AvailableOn(date time.Time) bool {
	day, ok := r.Day(DayNameFor(date))
	return ok && day.Available
}
