package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AvailabilityRepository хранение недельной доступности. Недельные данные
// лежат в jsonb-колонке availability_data; уникальность пары
// (user_id, week_start_date) обеспечивает constraint, поэтому upsert
// атомарен на уровне базы.
type AvailabilityRepository struct {
	*base.Repository
}

// NewAvailabilityRepository создаёт репозиторий доступности
func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: base.NewRepository(pool)}
}

// GetByUserWeek получает запись недели пользователя или nil
func (r *AvailabilityRepository) GetByUserWeek(ctx context.Context, userID int64, week model.WeekKey) (*model.AvailabilityRecord, error) {
	query := `
		SELECT id, user_id, week_start_date, availability_data, created_at, updated_at
		FROM availability
		WHERE user_id = $1 AND week_start_date = $2
	`

	record, err := r.scanRecord(r.QueryRow(ctx, query, userID, week.Monday))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability by user week: %w", err)
	}

	return record, nil
}

// GetByUserRange получает записи пользователя за диапазон недель
func (r *AvailabilityRepository) GetByUserRange(ctx context.Context, userID int64, from, to model.WeekKey) ([]*model.AvailabilityRecord, error) {
	query := `
		SELECT id, user_id, week_start_date, availability_data, created_at, updated_at
		FROM availability
		WHERE user_id = $1 AND week_start_date >= $2 AND week_start_date <= $3
		ORDER BY week_start_date
	`

	rows, err := r.Query(ctx, query, userID, from.Monday, to.Monday)
	if err != nil {
		return nil, fmt.Errorf("get availability range: %w", err)
	}
	defer rows.Close()

	var records []*model.AvailabilityRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// Upsert атомарно создаёт или полностью перезаписывает запись недели
func (r *AvailabilityRepository) Upsert(ctx context.Context, record *model.AvailabilityRecord) error {
	data, err := record.Days.Encode()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO availability (user_id, week_start_date, availability_data)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, week_start_date)
		DO UPDATE SET availability_data = EXCLUDED.availability_data, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.QueryRow(ctx, query, record.UserID, record.Week.Monday, data).
		Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}

	return nil
}

// UpsertVersioned перезаписывает запись недели только если её версия
// (updated_at) не изменилась с момента чтения. При расхождении версий
// возвращается model.ErrPersistenceConflict. Нулевая версия означает
// "записи не было": вставка, проигравшая гонку с конкурентной вставкой,
// тоже считается конфликтом.
func (r *AvailabilityRepository) UpsertVersioned(ctx context.Context, record *model.AvailabilityRecord) error {
	data, err := record.Days.Encode()
	if err != nil {
		return err
	}

	if record.UpdatedAt.IsZero() {
		query := `
			INSERT INTO availability (user_id, week_start_date, availability_data)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, week_start_date) DO NOTHING
			RETURNING id, created_at, updated_at
		`
		err = r.QueryRow(ctx, query, record.UserID, record.Week.Monday, data).
			Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			if base.IsNotFound(err) {
				return fmt.Errorf("%w: concurrent insert for user %d week %s",
					model.ErrPersistenceConflict, record.UserID, record.Week)
			}
			return fmt.Errorf("insert availability: %w", err)
		}
		return nil
	}

	query := `
		UPDATE availability
		SET availability_data = $3, updated_at = NOW()
		WHERE user_id = $1 AND week_start_date = $2 AND updated_at = $4
		RETURNING id, created_at, updated_at
	`
	err = r.QueryRow(ctx, query, record.UserID, record.Week.Monday, data, record.UpdatedAt).
		Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("%w: concurrent update for user %d week %s",
				model.ErrPersistenceConflict, record.UserID, record.Week)
		}
		return fmt.Errorf("update availability: %w", err)
	}

	return nil
}

// DeleteByUserWeek удаляет запись недели пользователя
func (r *AvailabilityRepository) DeleteByUserWeek(ctx context.Context, userID int64, week model.WeekKey) error {
	_, err := r.ExecAffected(ctx,
		`DELETE FROM availability WHERE user_id = $1 AND week_start_date = $2`,
		userID, week.Monday)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord читает строку availability в модель
func (r *AvailabilityRepository) scanRecord(row rowScanner) (*model.AvailabilityRecord, error) {
	var (
		record model.AvailabilityRecord
		monday time.Time
		data   []byte
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&monday,
		&data,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Week = model.NewWeekKey(monday)
	record.Days, err = model.DecodeWeekData(data)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
