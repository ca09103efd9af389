package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultly/consultly-api/internal/models"
	"github.com/consultly/consultly-api/internal/repository"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type scheduleHourStub struct {
	created   *models.WorkingHour
	deleteErr error
}

func (s *scheduleHourStub) ListByConsultant(_ context.Context, _ string) ([]models.WorkingHour, error) {
	return nil, nil
}

func (s *scheduleHourStub) Create(_ context.Context, hour *models.WorkingHour) error {
	hour.ID = "hour-1"
	s.created = hour
	return nil
}

func (s *scheduleHourStub) Delete(_ context.Context, _, _ string) error {
	return s.deleteErr
}

type scheduleHolidayStub struct {
	created *models.Holiday
}

func (s *scheduleHolidayStub) ListByConsultant(_ context.Context, _ string) ([]models.Holiday, error) {
	return nil, nil
}

func (s *scheduleHolidayStub) Create(_ context.Context, holiday *models.Holiday) error {
	holiday.ID = "holiday-1"
	s.created = holiday
	return nil
}

func (s *scheduleHolidayStub) Delete(_ context.Context, _, _ string) error {
	return nil
}

func newScheduleFixture(hours *scheduleHourStub, holidays *scheduleHolidayStub) *ScheduleService {
	consultants := &consultantStoreStub{
		consultants: map[string]*models.Consultant{"consultant-1": activeConsultant()},
	}
	return NewScheduleService(hours, holidays, consultants, nil, nil)
}

func TestAddWorkingHourValidatesWindow(t *testing.T) {
	svc := newScheduleFixture(&scheduleHourStub{}, &scheduleHolidayStub{})
	owner := models.Actor{UserID: "user-consultant", Role: models.RoleConsultant}

	cases := []CreateWorkingHourRequest{
		{DayOfWeek: 1, StartTime: "nine", EndTime: "17:00"},
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "late"},
		{DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:00"},
		{DayOfWeek: 9, StartTime: "09:00", EndTime: "17:00"},
	}
	for _, req := range cases {
		_, err := svc.AddWorkingHour(context.Background(), owner, "consultant-1", req)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "%+v", req)
	}
}

func TestAddWorkingHourOwnerOnly(t *testing.T) {
	hours := &scheduleHourStub{}
	svc := newScheduleFixture(hours, &scheduleHolidayStub{})
	req := CreateWorkingHourRequest{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}

	_, err := svc.AddWorkingHour(context.Background(), models.Actor{UserID: "other-user", Role: models.RoleConsultant}, "consultant-1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Nil(t, hours.created)

	hour, err := svc.AddWorkingHour(context.Background(), models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, "consultant-1", req)
	require.NoError(t, err)
	assert.True(t, hour.Active)
	assert.Equal(t, 1, hour.DayOfWeek)
}

func TestRemoveWorkingHourNotFound(t *testing.T) {
	svc := newScheduleFixture(&scheduleHourStub{deleteErr: repository.ErrNoRowsAffected}, &scheduleHolidayStub{})

	err := svc.RemoveWorkingHour(context.Background(), models.Actor{UserID: "user-consultant", Role: models.RoleConsultant}, "consultant-1", "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAddHolidayParsesDate(t *testing.T) {
	holidays := &scheduleHolidayStub{}
	svc := newScheduleFixture(&scheduleHourStub{}, holidays)
	owner := models.Actor{UserID: "user-consultant", Role: models.RoleConsultant}

	_, err := svc.AddHoliday(context.Background(), owner, "consultant-1", CreateHolidayRequest{Date: "March 3rd"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	holiday, err := svc.AddHoliday(context.Background(), owner, "consultant-1", CreateHolidayRequest{Date: "2026-03-03"})
	require.NoError(t, err)
	assert.Equal(t, 2026, holiday.Date.Year())
	assert.Equal(t, "consultant-1", holiday.ConsultantID)
}
