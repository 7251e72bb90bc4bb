package repository

import (
	"context"
	"fmt"

	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultScheduleRepository хранение шаблонов доступности
type DefaultScheduleRepository struct {
	*base.Repository
}

// NewDefaultScheduleRepository создаёт репозиторий шаблонов
func NewDefaultScheduleRepository(pool *pgxpool.Pool) *DefaultScheduleRepository {
	return &DefaultScheduleRepository{Repository: base.NewRepository(pool)}
}

// GetActive получает активный шаблон пользователя или nil
func (r *DefaultScheduleRepository) GetActive(ctx context.Context, userID int64) (*model.DefaultSchedule, error) {
	query := `
		SELECT id, user_id, name, schedule_data, is_active, created_at, updated_at
		FROM default_schedules
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`

	var (
		schedule model.DefaultSchedule
		data     []byte
	)
	err := r.QueryRow(ctx, query, userID).Scan(
		&schedule.ID,
		&schedule.UserID,
		&schedule.Name,
		&data,
		&schedule.IsActive,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active schedule: %w", err)
	}

	schedule.Days, err = model.DecodeWeekData(data)
	if err != nil {
		return nil, fmt.Errorf("decode schedule data: %w", err)
	}

	return &schedule, nil
}

// CreateActive атомарно деактивирует прежние шаблоны пользователя и
// вставляет новый активный. Обе операции идут в одной транзакции, чтобы
// у пользователя в любой момент был не более чем один активный шаблон.
func (r *DefaultScheduleRepository) CreateActive(ctx context.Context, schedule *model.DefaultSchedule) error {
	data, err := schedule.Days.Encode()
	if err != nil {
		return err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE default_schedules SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_active`,
		schedule.UserID)
	if err != nil {
		return fmt.Errorf("deactivate old schedules: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO default_schedules (user_id, name, schedule_data, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at, updated_at
	`, schedule.UserID, schedule.Name, data).
		Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	schedule.IsActive = true

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}

	return nil
}
