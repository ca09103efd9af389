package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// ConsultantRepository provides persistence for consultant profiles.
type ConsultantRepository struct {
	db *sqlx.DB
}

// NewConsultantRepository creates a new consultant repository.
func NewConsultantRepository(db *sqlx.DB) *ConsultantRepository {
	return &ConsultantRepository{db: db}
}

const consultantColumns = "id, user_id, hourly_price, default_duration_minutes, default_buffer_minutes, method, rating_avg, ratings_count, active, created_at, updated_at, deleted_at"

// FindByID loads a consultant by id, excluding soft-deleted rows.
func (r *ConsultantRepository) FindByID(ctx context.Context, id string) (*models.Consultant, error) {
	query := fmt.Sprintf("SELECT %s FROM consultants WHERE id = $1 AND deleted_at IS NULL", consultantColumns)
	var consultant models.Consultant
	if err := r.db.GetContext(ctx, &consultant, query, id); err != nil {
		return nil, err
	}
	return &consultant, nil
}

// FindByUserID loads the consultant profile owned by a user.
func (r *ConsultantRepository) FindByUserID(ctx context.Context, userID string) (*models.Consultant, error) {
	query := fmt.Sprintf("SELECT %s FROM consultants WHERE user_id = $1 AND deleted_at IS NULL", consultantColumns)
	var consultant models.Consultant
	if err := r.db.GetContext(ctx, &consultant, query, userID); err != nil {
		return nil, err
	}
	return &consultant, nil
}
