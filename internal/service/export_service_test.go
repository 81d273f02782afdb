package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(seededStore(t), files, signer, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, nil, nil, nil), files
}

func TestExportServiceGenerateAndOpen(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	ctx := context.Background()

	res, err := svc.Generate(ctx, "2020SP", ExportFormatCSV)
	require.NoError(t, err)
	assert.Positive(t, res.Rows)
	assert.True(t, strings.HasPrefix(res.URL, "/api/v1/exports/"))
	assert.True(t, strings.HasPrefix(res.RelativePath, "risks/2020SP_"))

	file, rel, err := svc.Open(res.Token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.Equal(t, res.RelativePath, rel)

	_, _, err = svc.Open(res.Token + "x")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceRender(t *testing.T) {
	store := seededStore(t)
	svc := NewExportService(store, nil, nil, ExportConfig{}, nil, nil, nil)
	ctx := context.Background()

	csv, rows, err := svc.Render(ctx, "2020SP", ExportFormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	assert.Equal(t, "student_id,period_code,attendance_risk,academic_support_risk,bucket,computed_on", lines[0])
	assert.Len(t, lines, rows+1)

	pdf, _, err := svc.Render(ctx, "2020SP", ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	_, _, err = svc.Render(ctx, "2031FA", ExportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Generate(ctx, "2020SP", ExportFormatCSV)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, f)

	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRiskDatasetFormatsRows(t *testing.T) {
	period := models.AcademicPeriod{Code: "2020SP"}
	ds := riskDataset(period, []models.StudentRisk{{
		StudentID:                "s1",
		AttendanceRiskScore:      0.25,
		AcademicSupportRiskScore: 0.5,
		OverallRiskBucket:        models.RiskBucketMedium,
		ComputedOn:               time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	}})
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "0.250", ds.Rows[0]["attendance_risk"])
	assert.Equal(t, "2020-02-01", ds.Rows[0]["computed_on"])
	assert.Equal(t, "MEDIUM", ds.Rows[0]["bucket"])
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, files := newExportServiceForTest(t)

	res, err := svc.Generate(context.Background(), "2019fa", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, res.Format)
	assert.True(t, strings.HasSuffix(res.RelativePath, ".pdf"))

	info, err := os.Stat(files.Path(res.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
