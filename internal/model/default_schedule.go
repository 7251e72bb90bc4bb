package model

import "time"

// DefaultSchedule многоразовый недельный шаблон доступности. Не привязан
// к конкретной неделе; у пользователя одновременно активен не более одного
// шаблона (активация нового деактивирует прежние).
type DefaultSchedule struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"schedule_name"`
	Days      WeekData  `json:"schedule_data"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultScheduleName имя шаблона по умолчанию
const DefaultScheduleName = "Default Schedule"
