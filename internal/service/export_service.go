package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/export"
)

// ExportFormat enumerates supported ledger file formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportBookingRepo interface {
	ListBetween(ctx context.Context, consultantID string, from, to time.Time) ([]models.Booking, error)
}

type exportConsultantRepo interface {
	FindByID(ctx context.Context, id string) (*models.Consultant, error)
}

type exportStore interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	Sweep(ttl time.Duration) (int, error)
}

type downloadSigner interface {
	Sign(name string) (string, time.Time, error)
	Verify(token string) (string, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportResult captures metadata for a generated ledger file.
type ExportResult struct {
	FileName  string       `json:"file_name"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ExportService renders a consultant's booking ledger to CSV or PDF,
// stores the file and hands out signed download links.
type ExportService struct {
	bookings    exportBookingRepo
	consultants exportConsultantRepo
	store       exportStore
	signer      downloadSigner
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	apiPrefix   string
	resultTTL   time.Duration
}

// NewExportService constructs an ExportService.
func NewExportService(bookings exportBookingRepo, consultants exportConsultantRepo, store exportStore, signer downloadSigner, apiPrefix string, resultTTL time.Duration, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &ExportService{
		bookings:    bookings,
		consultants: consultants,
		store:       store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		apiPrefix:   apiPrefix,
		resultTTL:   resultTTL,
	}
}

// GenerateLedger renders the consultant's bookings within [from, to) and
// returns a signed download link. Consultants may export their own ledger,
// admins anyone's.
func (s *ExportService) GenerateLedger(ctx context.Context, actor models.Actor, consultantID string, from, to time.Time, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must precede to")
	}

	consultant, err := s.consultants.FindByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch consultant")
	}
	if !actor.IsAdmin() && consultant.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no standing on this consultant's ledger")
	}

	bookings, err := s.bookings.ListBetween(ctx, consultantID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	table := buildLedgerTable(consultant.ID, from, to, bookings)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ledger")
	}

	name := fmt.Sprintf("ledger_%s_%s.%s", consultantID, time.Now().UTC().Format("20060102_150405"), format)
	if err := s.store.Save(name, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ledger")
	}

	token, expiresAt, err := s.signer.Sign(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.apiPrefix, "/")
	return &ExportResult{
		FileName:  name,
		Format:    format,
		Rows:      len(bookings),
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenDownload validates a download token and opens the referenced file.
func (s *ExportService) OpenDownload(token string) (*os.File, error) {
	name, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
	file, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, nil
}

// SweepStale removes stored ledger files older than the result TTL. Runs
// on the background scheduler.
func (s *ExportService) SweepStale(_ context.Context) (int, error) {
	removed, err := s.store.Sweep(s.resultTTL)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.logger.Info("removed stale export files", zap.Int("count", removed))
	}
	return removed, nil
}

func buildLedgerTable(consultantID string, from, to time.Time, bookings []models.Booking) export.Table {
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		target := string(b.BookableType)
		if b.ConsultantServiceID != nil {
			target = fmt.Sprintf("%s:%s", b.BookableType, *b.ConsultantServiceID)
		}
		rows = append(rows, []string{
			b.ID,
			b.StartAt.UTC().Format(time.RFC3339),
			b.EndAt.UTC().Format(time.RFC3339),
			strconv.Itoa(b.DurationMinutes),
			string(b.Status),
			target,
			b.ClientID,
			strconv.FormatFloat(b.Price, 'f', 2, 64),
		})
	}
	return export.Table{
		Title: fmt.Sprintf("Booking ledger %s (%s to %s)", consultantID,
			from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02")),
		Headers: []string{"Booking ID", "Start", "End", "Minutes", "Status", "Target", "Client", "Price"},
		Rows:    rows,
	}
}
