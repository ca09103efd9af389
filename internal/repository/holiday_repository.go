package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// HolidayRepository provides persistence for consultant holidays.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository creates a new holiday repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ExistsOnDate reports whether the consultant has a holiday on the given
// calendar date.
func (r *HolidayRepository) ExistsOnDate(ctx context.Context, consultantID string, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM consultant_holidays WHERE consultant_id = $1 AND date = $2 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, consultantID, date.Format("2006-01-02"))
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("holiday lookup: %w", err)
	}
	return true, nil
}

// ListByConsultant returns the consultant's holidays ordered by date.
func (r *HolidayRepository) ListByConsultant(ctx context.Context, consultantID string) ([]models.Holiday, error) {
	const query = `SELECT id, consultant_id, date, label, created_at FROM consultant_holidays WHERE consultant_id = $1 ORDER BY date`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, consultantID); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// Create inserts a holiday. The unique constraint on (consultant_id, date)
// rejects duplicates.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	holiday.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO consultant_holidays (id, consultant_id, date, label, created_at) VALUES (:id, :consultant_id, :date, :label, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// Delete removes a holiday by id, scoped to the owning consultant.
func (r *HolidayRepository) Delete(ctx context.Context, consultantID, id string) error {
	const query = `DELETE FROM consultant_holidays WHERE id = $1 AND consultant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, consultantID)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete holiday rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
