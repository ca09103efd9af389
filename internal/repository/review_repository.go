package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// ReviewRepository provides persistence for reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = "id, booking_id, consultant_id, client_id, consultant_service_id, rating, comment, created_at, updated_at, deleted_at"

// FindByID loads a review by id. Soft-deleted rows are returned so the
// restore path can find them; callers filter on DeletedAt when needed.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// ExistsForBooking reports whether a live review already covers the booking.
func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	const query = `SELECT 1 FROM reviews WHERE booking_id = $1 AND deleted_at IS NULL LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, bookingID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("review lookup: %w", err)
	}
	return true, nil
}

// ListByConsultant returns the consultant's live reviews, newest first.
func (r *ReviewRepository) ListByConsultant(ctx context.Context, consultantID string, page, size int) ([]models.Review, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE consultant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC LIMIT %d OFFSET %d", reviewColumns, size, (page-1)*size)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, consultantID); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews WHERE consultant_id = $1 AND deleted_at IS NULL`, consultantID); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// Create inserts a review. The unique constraint on booking_id enforces
// one review per booking.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (id, booking_id, consultant_id, client_id, consultant_service_id, rating, comment, created_at, updated_at) VALUES (:id, :booking_id, :consultant_id, :client_id, :consultant_service_id, :rating, :comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// Update rewrites the review's rating and comment.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviews SET rating = :rating, comment = :comment, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	result, err := r.db.NamedExecContext(ctx, query, review)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// SoftDelete hides a review from aggregates without losing it.
func (r *ReviewRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE reviews SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("soft delete review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete review rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Restore brings a soft-deleted review back.
func (r *ReviewRepository) Restore(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE reviews SET deleted_at = NULL, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL`
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("restore review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore review rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
