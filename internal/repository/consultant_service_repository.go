package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// ConsultantServiceRepository provides persistence for catalog items.
type ConsultantServiceRepository struct {
	db *sqlx.DB
}

// NewConsultantServiceRepository creates a new catalog repository.
func NewConsultantServiceRepository(db *sqlx.DB) *ConsultantServiceRepository {
	return &ConsultantServiceRepository{db: db}
}

const serviceColumns = "id, consultant_id, title, price, duration_minutes, buffer_minutes, rating_avg, ratings_count, active, created_at, updated_at, deleted_at"

// FindByID loads a catalog item by id, excluding soft-deleted rows.
func (r *ConsultantServiceRepository) FindByID(ctx context.Context, id string) (*models.ConsultantService, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_services WHERE id = $1 AND deleted_at IS NULL", serviceColumns)
	var svc models.ConsultantService
	if err := r.db.GetContext(ctx, &svc, query, id); err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListByConsultant returns the consultant's active catalog items.
func (r *ConsultantServiceRepository) ListByConsultant(ctx context.Context, consultantID string) ([]models.ConsultantService, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_services WHERE consultant_id = $1 AND active = TRUE AND deleted_at IS NULL ORDER BY created_at", serviceColumns)
	var services []models.ConsultantService
	if err := r.db.SelectContext(ctx, &services, query, consultantID); err != nil {
		return nil, fmt.Errorf("list consultant services: %w", err)
	}
	return services, nil
}
