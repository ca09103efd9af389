package models

import "time"

// Review is a client's rating of a completed booking. One review per
// booking, enforced by a unique constraint on booking_id.
type Review struct {
	ID                  string     `db:"id" json:"id"`
	BookingID           string     `db:"booking_id" json:"booking_id"`
	ConsultantID        string     `db:"consultant_id" json:"consultant_id"`
	ClientID            string     `db:"client_id" json:"client_id"`
	ConsultantServiceID *string    `db:"consultant_service_id" json:"consultant_service_id,omitempty"`
	Rating              int        `db:"rating" json:"rating"`
	Comment             *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// RatingAggregate is the recomputed mean/count pair for a consultant or a
// consultant service.
type RatingAggregate struct {
	Average float64 `db:"rating_avg"`
	Count   int     `db:"ratings_count"`
}
