package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingExpired, BookingCompleted}

	allowed := map[BookingStatus]map[BookingStatus]bool{
		BookingPending: {
			BookingConfirmed: true,
			BookingCancelled: true,
			BookingExpired:   true,
		},
		BookingConfirmed: {
			BookingCancelled: true,
			BookingCompleted: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestBookingStatusTerminal(t *testing.T) {
	assert.False(t, BookingPending.IsTerminal())
	assert.False(t, BookingConfirmed.IsTerminal())
	assert.True(t, BookingCancelled.IsTerminal())
	assert.True(t, BookingExpired.IsTerminal())
	assert.True(t, BookingCompleted.IsTerminal())
}

func TestBookableRoundTrip(t *testing.T) {
	serviceID := "service-1"
	booking := &Booking{BookableType: BookableService, ConsultantServiceID: &serviceID}
	assert.Equal(t, BookableTarget{Kind: BookableService, ServiceID: "service-1"}, booking.Bookable())

	hourly := &Booking{BookableType: BookableConsultant}
	assert.Equal(t, BookableTarget{Kind: BookableConsultant}, hourly.Bookable())
}
