package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/storage"
)

type exportBookingStub struct {
	bookings []models.Booking
}

func (s *exportBookingStub) ListBetween(_ context.Context, _ string, _, _ time.Time) ([]models.Booking, error) {
	return s.bookings, nil
}

func newExportFixture(t *testing.T, bookings []models.Booking) *ExportService {
	t.Helper()
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("export-secret", time.Hour)

	consultants := &consultantStoreStub{
		consultants: map[string]*models.Consultant{"consultant-1": activeConsultant()},
	}
	return NewExportService(&exportBookingStub{bookings: bookings}, consultants, store, signer, "/api/v1", time.Hour, nil)
}

func ledgerBookings() []models.Booking {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return []models.Booking{
		{
			ID:              "booking-1",
			ClientID:        "client-1",
			ConsultantID:    "consultant-1",
			BookableType:    models.BookableConsultant,
			StartAt:         start,
			EndAt:           start.Add(time.Hour),
			DurationMinutes: 60,
			Status:          models.BookingCompleted,
			Price:           90,
		},
		{
			ID:              "booking-2",
			ClientID:        "client-2",
			ConsultantID:    "consultant-1",
			BookableType:    models.BookableConsultant,
			StartAt:         start.Add(2 * time.Hour),
			EndAt:           start.Add(3 * time.Hour),
			DurationMinutes: 60,
			Status:          models.BookingCancelled,
			Price:           90,
		},
	}
}

func TestExportLedgerCSVDownloadFlow(t *testing.T) {
	svc := newExportFixture(t, ledgerBookings())
	admin := models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	result, err := svc.GenerateLedger(context.Background(), admin, "consultant-1", from, to, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"), result.URL)

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	file, err := svc.OpenDownload(token)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Booking ID")
	assert.Contains(t, lines[1], "booking-1")
	assert.Contains(t, lines[1], "2026-03-02T14:00:00Z")
	assert.Contains(t, lines[1], "90.00")
	assert.Contains(t, lines[2], "CANCELLED")
}

func TestExportLedgerOwnerOnly(t *testing.T) {
	svc := newExportFixture(t, nil)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.GenerateLedger(context.Background(), models.Actor{UserID: "someone-else", Role: models.RoleConsultant}, "consultant-1", from, to, ExportFormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	// The consultant's own user may export.
	_, err = svc.GenerateLedger(context.Background(), models.Actor{UserID: "user-consultant", Role: models.RoleConsultant}, "consultant-1", from, to, ExportFormatCSV)
	assert.NoError(t, err)
}

func TestExportLedgerValidatesInput(t *testing.T) {
	svc := newExportFixture(t, nil)
	admin := models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.GenerateLedger(context.Background(), admin, "consultant-1", from, from.AddDate(0, 1, 0), ExportFormat("xlsx"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.GenerateLedger(context.Background(), admin, "consultant-1", from, from, ExportFormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportDownloadRejectsBadToken(t *testing.T) {
	svc := newExportFixture(t, nil)

	_, err := svc.OpenDownload("not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportDownloadMissingFile(t *testing.T) {
	svc := newExportFixture(t, nil)
	signer := storage.NewDownloadSigner("export-secret", time.Hour)
	token, _, err := signer.Sign("ledger_gone.csv")
	require.NoError(t, err)

	_, err = svc.OpenDownload(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
