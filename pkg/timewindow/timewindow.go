package timewindow

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// New builds a window from a start time and a duration in minutes.
func New(start time.Time, durationMinutes int) Window {
	return Window{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// IsZeroLength reports whether the window covers no time at all.
func (w Window) IsZeroLength() bool {
	return !w.Start.Before(w.End)
}

// Overlaps reports whether two half-open windows intersect. Zero-length
// windows never overlap anything.
func (w Window) Overlaps(other Window) bool {
	if w.IsZeroLength() || other.IsZeroLength() {
		return false
	}
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// WithBuffer extends End by the given number of minutes. Used only for
// collision checks; the buffered end is never persisted as the window's own end.
func (w Window) WithBuffer(bufferMinutes int) Window {
	if bufferMinutes <= 0 {
		return w
	}
	return Window{Start: w.Start, End: w.End.Add(time.Duration(bufferMinutes) * time.Minute)}
}

// Contains reports whether other lies fully within w.
func (w Window) Contains(other Window) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// AlignedToGrid reports whether t falls exactly on a granularity boundary
// within its hour (e.g. :00, :05, :10 for a 5-minute grid) with no seconds
// or sub-second component.
func AlignedToGrid(t time.Time, granularityMinutes int) bool {
	if granularityMinutes <= 0 {
		return false
	}
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	return t.Minute()%granularityMinutes == 0
}

// IsGridMultiple reports whether minutes is a positive multiple of the grid
// granularity.
func IsGridMultiple(minutes, granularityMinutes int) bool {
	if granularityMinutes <= 0 || minutes <= 0 {
		return false
	}
	return minutes%granularityMinutes == 0
}
