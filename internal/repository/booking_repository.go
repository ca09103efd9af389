package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = "id, client_id, consultant_id, bookable_type, consultant_service_id, start_at, end_at, duration_minutes, buffer_after_minutes, status, price, expires_at, confirmed_at, cancelled_at, cancel_reason, cancelled_by_type, cancelled_by_id, completed_at, created_at, updated_at, deleted_at"

// findConflictQuery matches pending/confirmed bookings whose own buffered
// window [start_at, end_at + buffer_after_minutes) intersects the candidate
// buffered window [$2, $3).
const findConflictQuery = `SELECT id FROM bookings WHERE consultant_id = $1 AND status IN ('PENDING', 'CONFIRMED') AND deleted_at IS NULL AND start_at < $3 AND end_at + make_interval(mins => buffer_after_minutes) > $2 ORDER BY start_at LIMIT 1`

// Reserve inserts a pending booking after re-checking for overlaps inside
// one transaction. A row lock on the consultant serializes racing creates
// for the same calendar, closing the check-then-insert window.
//
// Returns *models.SlotConflictError (wrapped in the SLOT_CONFLICT domain
// error) when the candidate buffered window overlaps an existing
// pending/confirmed booking.
func (r *BookingRepository) Reserve(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM consultants WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, booking.ConsultantID); err != nil {
		if isNoRows(err) {
			err = appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return err
	}

	bufferedEnd := booking.EndAt.Add(time.Duration(booking.BufferAfterMinutes) * time.Minute)
	var conflictingID string
	err = tx.GetContext(ctx, &conflictingID, findConflictQuery, booking.ConsultantID, booking.StartAt, bufferedEnd)
	if err == nil {
		err = appErrors.Wrap(&models.SlotConflictError{
			ConflictingBookingID: conflictingID,
			RequestedStart:       booking.StartAt,
			RequestedEnd:         booking.EndAt,
		}, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, appErrors.ErrSlotConflict.Message)
		return err
	}
	if !isNoRows(err) {
		err = fmt.Errorf("conflict check: %w", err)
		return err
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const insertQuery = `INSERT INTO bookings (id, client_id, consultant_id, bookable_type, consultant_service_id, start_at, end_at, duration_minutes, buffer_after_minutes, status, price, expires_at, created_at, updated_at) VALUES (:id, :client_id, :consultant_id, :bookable_type, :consultant_service_id, :start_at, :end_at, :duration_minutes, :buffer_after_minutes, :status, :price, :expires_at, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, booking); err != nil {
		err = fmt.Errorf("insert booking: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

// FindConflicting returns the id of a pending/confirmed booking whose
// buffered window overlaps [start, bufferedEnd), or "" when the slot is
// free. Used by the availability read path outside a transaction.
func (r *BookingRepository) FindConflicting(ctx context.Context, consultantID string, start, bufferedEnd time.Time) (string, error) {
	var conflictingID string
	err := r.db.GetContext(ctx, &conflictingID, findConflictQuery, consultantID, start, bufferedEnd)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("conflict check: %w", err)
	}
	return conflictingID, nil
}

// FindByID loads a booking by id, excluding soft-deleted rows.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1 AND deleted_at IS NULL", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE deleted_at IS NULL"
	var conditions []string
	var args []interface{}

	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.ConsultantID != "" {
		conditions = append(conditions, fmt.Sprintf("consultant_id = $%d", len(args)+1))
		args = append(args, filter.ConsultantID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_at":   true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// ListActiveBetween returns pending/confirmed bookings whose buffered
// windows intersect [from, to), ordered by start. Feeds free-slot
// enumeration.
func (r *BookingRepository) ListActiveBetween(ctx context.Context, consultantID string, from, to time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE consultant_id = $1 AND status IN ('PENDING', 'CONFIRMED') AND deleted_at IS NULL AND start_at < $3 AND end_at + make_interval(mins => buffer_after_minutes) > $2 ORDER BY start_at", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, consultantID, from, to); err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// ListBetween returns all of a consultant's bookings starting within
// [from, to), any status, ordered by start. Feeds the ledger export.
func (r *BookingRepository) ListBetween(ctx context.Context, consultantID string, from, to time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE consultant_id = $1 AND deleted_at IS NULL AND start_at >= $2 AND start_at < $3 ORDER BY start_at", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, consultantID, from, to); err != nil {
		return nil, fmt.Errorf("list bookings between: %w", err)
	}
	return bookings, nil
}

// Confirm flips a pending booking to confirmed under a row lock, enforcing
// the hold expiry. When the hold has lapsed the row is flipped to expired
// and the BOOKING_EXPIRED outcome is returned.
func (r *BookingRepository) Confirm(ctx context.Context, id string, now time.Time) (booking *models.Booking, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	booking, err = r.lockRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status != models.BookingPending {
		err = appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot confirm a %s booking", strings.ToLower(string(booking.Status))))
		return nil, err
	}

	if booking.ExpiresAt != nil && !now.Before(*booking.ExpiresAt) {
		// The hold lapsed before the sweep got here; settle the row now so
		// the slot frees up immediately.
		if _, execErr := tx.ExecContext(ctx, `UPDATE bookings SET status = 'EXPIRED', updated_at = $2 WHERE id = $1`, id, now); execErr != nil {
			err = fmt.Errorf("expire booking: %w", execErr)
			return nil, err
		}
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit expire: %w", err)
		}
		return nil, appErrors.ErrBookingExpired
	}

	if _, err = tx.ExecContext(ctx, `UPDATE bookings SET status = 'CONFIRMED', confirmed_at = $2, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		err = fmt.Errorf("confirm booking: %w", err)
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}

	booking.Status = models.BookingConfirmed
	booking.ConfirmedAt = &now
	booking.UpdatedAt = now
	return booking, nil
}

// Cancel moves a pending or confirmed booking to cancelled under a row
// lock, recording the canceller and reason.
func (r *BookingRepository) Cancel(ctx context.Context, id string, canceller models.Canceller, reason string, now time.Time) (booking *models.Booking, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	booking, err = r.lockRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if !booking.Status.CanTransition(models.BookingCancelled) {
		err = appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot cancel a %s booking", strings.ToLower(string(booking.Status))))
		return nil, err
	}

	const query = `UPDATE bookings SET status = 'CANCELLED', cancelled_at = $2, cancel_reason = $3, cancelled_by_type = $4, cancelled_by_id = $5, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, id, now, reason, canceller.Kind, canceller.ID); err != nil {
		err = fmt.Errorf("cancel booking: %w", err)
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	booking.Status = models.BookingCancelled
	booking.CancelledAt = &now
	booking.CancelReason = &reason
	booking.CancelledByType = &canceller.Kind
	booking.CancelledByID = &canceller.ID
	booking.UpdatedAt = now
	return booking, nil
}

// ListExpiredPending returns up to limit pending bookings whose hold lapsed
// before cutoff.
func (r *BookingRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE status = 'PENDING' AND expires_at < $1 AND deleted_at IS NULL ORDER BY expires_at LIMIT $2", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	return bookings, nil
}

// MarkExpired expires one pending booking. The status guard makes it a
// no-op when a racing confirm already moved the row on.
func (r *BookingRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE bookings SET status = 'EXPIRED', updated_at = $2 WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark expired rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// ListElapsedConfirmed returns up to limit confirmed bookings whose session
// end passed before cutoff.
func (r *BookingRepository) ListElapsedConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE status = 'CONFIRMED' AND end_at < $1 AND deleted_at IS NULL ORDER BY end_at LIMIT $2", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list elapsed confirmed: %w", err)
	}
	return bookings, nil
}

// MarkCompleted completes one confirmed booking whose session has ended.
func (r *BookingRepository) MarkCompleted(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE bookings SET status = 'COMPLETED', completed_at = $2, updated_at = $2 WHERE id = $1 AND status = 'CONFIRMED'`
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark completed rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *BookingRepository) lockRow(ctx context.Context, tx *sqlx.Tx, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", bookingColumns)
	var booking models.Booking
	if err := tx.GetContext(ctx, &booking, query, id); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, err
	}
	return &booking, nil
}
