package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// WorkingHourRepository provides persistence for weekly availability windows.
type WorkingHourRepository struct {
	db *sqlx.DB
}

// NewWorkingHourRepository creates a new working hour repository.
func NewWorkingHourRepository(db *sqlx.DB) *WorkingHourRepository {
	return &WorkingHourRepository{db: db}
}

const workingHourColumns = "id, consultant_id, day_of_week, start_time, end_time, active, created_at, updated_at"

// ListActiveByDay returns the consultant's active windows for one weekday.
func (r *WorkingHourRepository) ListActiveByDay(ctx context.Context, consultantID string, dayOfWeek int) ([]models.WorkingHour, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_working_hours WHERE consultant_id = $1 AND day_of_week = $2 AND active = TRUE ORDER BY start_time", workingHourColumns)
	var hours []models.WorkingHour
	if err := r.db.SelectContext(ctx, &hours, query, consultantID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	return hours, nil
}

// ListByConsultant returns all of the consultant's windows.
func (r *WorkingHourRepository) ListByConsultant(ctx context.Context, consultantID string) ([]models.WorkingHour, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_working_hours WHERE consultant_id = $1 ORDER BY day_of_week, start_time", workingHourColumns)
	var hours []models.WorkingHour
	if err := r.db.SelectContext(ctx, &hours, query, consultantID); err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	return hours, nil
}

// Create inserts a working hour window. The unique constraint on
// (consultant_id, day_of_week, start_time, end_time) rejects exact duplicates.
func (r *WorkingHourRepository) Create(ctx context.Context, hour *models.WorkingHour) error {
	if hour.ID == "" {
		hour.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hour.CreatedAt = now
	hour.UpdatedAt = now

	const query = `INSERT INTO consultant_working_hours (id, consultant_id, day_of_week, start_time, end_time, active, created_at, updated_at) VALUES (:id, :consultant_id, :day_of_week, :start_time, :end_time, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hour); err != nil {
		return fmt.Errorf("create working hour: %w", err)
	}
	return nil
}

// Delete removes a window by id, scoped to the owning consultant.
func (r *WorkingHourRepository) Delete(ctx context.Context, consultantID, id string) error {
	const query = `DELETE FROM consultant_working_hours WHERE id = $1 AND consultant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, consultantID)
	if err != nil {
		return fmt.Errorf("delete working hour: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete working hour rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
