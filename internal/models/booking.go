package models

import "time"

// BookingStatus enumerates booking lifecycle states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// IsTerminal reports whether the status never transitions again.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCancelled, BookingExpired, BookingCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled || next == BookingExpired
	case BookingConfirmed:
		return next == BookingCancelled || next == BookingCompleted
	}
	return false
}

// BookableKind distinguishes what a booking reserves.
type BookableKind string

const (
	// BookableConsultant reserves the consultant's generic hourly time with a
	// caller-chosen duration.
	BookableConsultant BookableKind = "CONSULTANT"
	// BookableService reserves a fixed-duration catalog item.
	BookableService BookableKind = "SERVICE"
)

// BookableTarget is the tagged variant naming what is being reserved.
// ServiceID is set only when Kind is BookableService.
type BookableTarget struct {
	Kind      BookableKind `json:"kind"`
	ServiceID string       `json:"service_id,omitempty"`
}

// CancellerKind attributes a cancellation to a user or an admin.
type CancellerKind string

const (
	CancellerUser  CancellerKind = "USER"
	CancellerAdmin CancellerKind = "ADMIN"
)

// Canceller identifies who cancelled a booking.
type Canceller struct {
	Kind CancellerKind `json:"kind"`
	ID   string        `json:"id"`
}

// Booking is the central reservation row.
//
// EndAt is always StartAt plus DurationMinutes. BufferAfterMinutes is
// snapshotted at creation so later service edits never change the exclusion
// zone of existing bookings. ExpiresAt is meaningful only while pending.
type Booking struct {
	ID                  string         `db:"id" json:"id"`
	ClientID            string         `db:"client_id" json:"client_id"`
	ConsultantID        string         `db:"consultant_id" json:"consultant_id"`
	BookableType        BookableKind   `db:"bookable_type" json:"bookable_type"`
	ConsultantServiceID *string        `db:"consultant_service_id" json:"consultant_service_id,omitempty"`
	StartAt             time.Time      `db:"start_at" json:"start_at"`
	EndAt               time.Time      `db:"end_at" json:"end_at"`
	DurationMinutes     int            `db:"duration_minutes" json:"duration_minutes"`
	BufferAfterMinutes  int            `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	Status              BookingStatus  `db:"status" json:"status"`
	Price               float64        `db:"price" json:"price"`
	ExpiresAt           *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	ConfirmedAt         *time.Time     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt         *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason        *string        `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledByType     *CancellerKind `db:"cancelled_by_type" json:"cancelled_by_type,omitempty"`
	CancelledByID       *string        `db:"cancelled_by_id" json:"cancelled_by_id,omitempty"`
	CompletedAt         *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Bookable returns the booking's target as a tagged variant.
func (b *Booking) Bookable() BookableTarget {
	target := BookableTarget{Kind: b.BookableType}
	if b.ConsultantServiceID != nil {
		target.ServiceID = *b.ConsultantServiceID
	}
	return target
}

// BookingFilter captures filtering options for listing bookings.
type BookingFilter struct {
	ClientID     string
	ConsultantID string
	Status       BookingStatus
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// SlotConflictError is returned when a requested window overlaps an
// existing booking; it carries the offending booking for diagnostics.
type SlotConflictError struct {
	ConflictingBookingID string    `json:"conflicting_booking_id"`
	RequestedStart       time.Time `json:"requested_start"`
	RequestedEnd         time.Time `json:"requested_end"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "requested window overlaps booking " + e.ConflictingBookingID
}
