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

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/export"
	"github.com/noah-isme/campus-sim/pkg/storage"
)

// ExportFormat names a rendered report encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var riskHeaders = []string{"student_id", "period_code", "attendance_risk", "academic_support_risk", "bucket", "computed_on"}

type riskSource interface {
	FindPeriodByCode(ctx context.Context, code string) (*models.AcademicPeriod, error)
	ListRisksByPeriod(ctx context.Context, periodID string) ([]models.StudentRisk, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"path"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	Rows         int          `json:"rows"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExportService renders period risk listings and persists them behind signed URLs.
type ExportService struct {
	source  riskSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. storage and signer may be nil
// when only Render is used.
func NewExportService(source riskSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		source:  source,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ParseFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", raw))
	}
}

// Render builds the risk report of a period and returns the encoded bytes and row count.
func (s *ExportService) Render(ctx context.Context, periodCode string, format ExportFormat) ([]byte, int, error) {
	code := strings.ToUpper(strings.TrimSpace(periodCode))
	period, err := s.source.FindPeriodByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, 0, appErrors.Internal(err, "failed to load period")
	}
	risks, err := s.source.ListRisksByPeriod(ctx, period.ID)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list student risks")
	}

	dataset := riskDataset(*period, risks)
	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Student risk %s", period.Code))
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to render risk export")
	}
	return payload, len(risks), nil
}

// Generate renders the report, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, periodCode string, format ExportFormat) (*ExportResult, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}
	code := strings.ToUpper(strings.TrimSpace(periodCode))
	payload, rows, err := s.Render(ctx, code, format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(code, format), payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store risk export")
	}

	token, expiresAt, err := s.signer.Sign(sanitizeFilename(code), relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("risk export generated", zap.String("path", relPath), zap.Int("rows", rows), zap.String("format", string(format)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       format,
		Rows:         rows,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	signed, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	relPath := signed.Path
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	return file, relPath, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(periodCode string, format ExportFormat) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("risks/%s_%s.%s", sanitizeFilename(periodCode), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func riskDataset(period models.AcademicPeriod, risks []models.StudentRisk) export.Dataset {
	rows := make([]map[string]string, 0, len(risks))
	for _, r := range risks {
		rows = append(rows, map[string]string{
			"student_id":            r.StudentID,
			"period_code":           period.Code,
			"attendance_risk":       strconv.FormatFloat(r.AttendanceRiskScore, 'f', 3, 64),
			"academic_support_risk": strconv.FormatFloat(r.AcademicSupportRiskScore, 'f', 3, 64),
			"bucket":                string(r.OverallRiskBucket),
			"computed_on":           r.ComputedOn.Format(time.DateOnly),
		})
	}
	return export.Dataset{
		Headers:   riskHeaders,
		Rows:      rows,
		Highlight: func(row map[string]string) bool { return row["bucket"] == string(models.RiskBucketHigh) },
	}
}
