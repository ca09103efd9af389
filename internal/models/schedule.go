package models

import "time"

// WorkingHour is one weekly availability window for a consultant.
// Times are "HH:MM" in the consultant's working timezone; DayOfWeek
// follows time.Weekday numbering (0 = Sunday).
type WorkingHour struct {
	ID           string    `db:"id" json:"id"`
	ConsultantID string    `db:"consultant_id" json:"consultant_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Holiday blocks a consultant's calendar for a whole date regardless of
// working hours.
type Holiday struct {
	ID           string    `db:"id" json:"id"`
	ConsultantID string    `db:"consultant_id" json:"consultant_id"`
	Date         time.Time `db:"date" json:"date"`
	Label        *string   `db:"label" json:"label,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Slot is one bookable window offered to clients when enumerating a day.
type Slot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}
