package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MinutesPerDay количество минут в сутках
const MinutesPerDay = 1440

// TimeRange полуоткрытый интервал минут внутри дня: [StartMin, EndMin).
// Инвариант: 0 <= StartMin < EndMin <= 1440.
type TimeRange struct {
	StartMin int `json:"start"`
	EndMin   int `json:"end"`
}

// Duration длительность диапазона в минутах
func (r TimeRange) Duration() int {
	return r.EndMin - r.StartMin
}

// Valid проверяет инвариант диапазона
func (r TimeRange) Valid() bool {
	return r.StartMin >= 0 && r.StartMin < r.EndMin && r.EndMin <= MinutesPerDay
}

// Overlaps проверяет пересечение двух полуоткрытых диапазонов
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.StartMin < other.EndMin && other.StartMin < r.EndMin
}

// IsAllDay true для диапазона, покрывающего весь день
func (r TimeRange) IsAllDay() bool {
	return r.StartMin == 0 && r.EndMin == MinutesPerDay
}

// String форматирует диапазон для логов
func (r TimeRange) String() string {
	return FromMinutes(r.StartMin) + "-" + FromMinutes(r.EndMin)
}

// ToMinutes разбирает строку времени в минуты дня. Поддерживаются оба
// исторических формата хранения: 24-часовой ("14:30") и 12-часовой
// ("2:30 PM"). Строка "24:00" принимается как конец дня.
func ToMinutes(s string) (int, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		s = strings.TrimSpace(strings.TrimSuffix(s, meridiem))
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("parse time %q: expected HH:MM", orig)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", orig, err)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", orig, err)
	}
	if minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("parse time %q: minutes out of range", orig)
	}

	if meridiem != "" {
		if hours < 1 || hours > 12 {
			return 0, fmt.Errorf("parse time %q: hours out of range", orig)
		}
		if meridiem == "PM" && hours != 12 {
			hours += 12
		} else if meridiem == "AM" && hours == 12 {
			hours = 0
		}
	} else {
		if hours == 24 && minutes == 0 {
			return MinutesPerDay, nil
		}
		if hours < 0 || hours > 23 {
			return 0, fmt.Errorf("parse time %q: hours out of range", orig)
		}
	}

	return hours*60 + minutes, nil
}

// FromMinutes форматирует минуты дня в 12-часовую строку отображения.
// Формат — контракт хранения: без ведущего нуля в часах, минута 0 это
// "12:00 AM", минута 720 это "12:00 PM". Минута 1440 (конец дня)
// форматируется как полночь.
func FromMinutes(m int) string {
	m = ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hours := m / 60
	mins := m % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("12:%02d AM", mins)
	case hours < 12:
		return fmt.Sprintf("%d:%02d AM", hours, mins)
	case hours == 12:
		return fmt.Sprintf("12:%02d PM", mins)
	default:
		return fmt.Sprintf("%d:%02d PM", hours-12, mins)
	}
}

// NormalizeRanges приводит список диапазонов к канонической форме:
// отбрасывает невалидные, сортирует по началу и объединяет пересекающиеся.
// Смежные (касающиеся) диапазоны не объединяются — они не пересекаются.
func NormalizeRanges(ranges []TimeRange) []TimeRange {
	valid := make([]TimeRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].StartMin != valid[j].StartMin {
			return valid[i].StartMin < valid[j].StartMin
		}
		return valid[i].EndMin < valid[j].EndMin
	})

	result := []TimeRange{valid[0]}
	for _, r := range valid[1:] {
		last := &result[len(result)-1]
		if r.StartMin < last.EndMin {
			if r.EndMin > last.EndMin {
				last.EndMin = r.EndMin
			}
			continue
		}
		result = append(result, r)
	}
	return result
}

// IntersectRanges возвращает пересечение двух канонических списков диапазонов
func IntersectRanges(a, b []TimeRange) []TimeRange {
	var result []TimeRange
	for _, x := range a {
		for _, y := range b {
			start := max(x.StartMin, y.StartMin)
			end := min(x.EndMin, y.EndMin)
			if start < end {
				result = append(result, TimeRange{StartMin: start, EndMin: end})
			}
		}
	}
	return NormalizeRanges(result)
}
