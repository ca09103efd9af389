package models

import "time"

// ConsultationMethod enumerates how a session is delivered.
type ConsultationMethod string

const (
	MethodVideo    ConsultationMethod = "VIDEO"
	MethodVoice    ConsultationMethod = "VOICE"
	MethodInPerson ConsultationMethod = "IN_PERSON"
)

// Consultant represents a bookable consultant profile.
//
// RatingAvg and RatingsCount are derived columns owned by the rating
// recomputation path; nothing else writes them.
type Consultant struct {
	ID                     string             `db:"id" json:"id"`
	UserID                 string             `db:"user_id" json:"user_id"`
	HourlyPrice            float64            `db:"hourly_price" json:"hourly_price"`
	DefaultDurationMinutes int                `db:"default_duration_minutes" json:"default_duration_minutes"`
	DefaultBufferMinutes   int                `db:"default_buffer_minutes" json:"default_buffer_minutes"`
	Method                 ConsultationMethod `db:"method" json:"method"`
	RatingAvg              float64            `db:"rating_avg" json:"rating_avg"`
	RatingsCount           int                `db:"ratings_count" json:"ratings_count"`
	Active                 bool               `db:"active" json:"active"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `db:"updated_at" json:"updated_at"`
	DeletedAt              *time.Time         `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ConsultantService is a fixed-duration catalog item offered by a consultant.
type ConsultantService struct {
	ID              string     `db:"id" json:"id"`
	ConsultantID    string     `db:"consultant_id" json:"consultant_id"`
	Title           string     `db:"title" json:"title"`
	Price           float64    `db:"price" json:"price"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	BufferMinutes   int        `db:"buffer_minutes" json:"buffer_minutes"`
	RatingAvg       float64    `db:"rating_avg" json:"rating_avg"`
	RatingsCount    int        `db:"ratings_count" json:"ratings_count"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
