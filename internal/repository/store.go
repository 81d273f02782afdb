package repository

import (
	"context"
	"time"

	"github.com/noah-isme/campus-sim/internal/models"
)

// Store is the durable keyed-record store the simulator reads and mutates.
// Every mutating method is one transaction boundary; missing rows surface as
// sql.ErrNoRows for both backends.
type Store interface {
	// ReplaceAll clears every simulator table, including the clock, and writes the dataset.
	ReplaceAll(ctx context.Context, data *models.Dataset) error
	Snapshot(ctx context.Context) (*models.Dataset, error)

	GetSimulationState(ctx context.Context) (*models.SimulationState, error)
	SaveSimulationState(ctx context.Context, state models.SimulationState) error

	ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error)
	FindPeriodByCode(ctx context.Context, code string) (*models.AcademicPeriod, error)
	ListOpenPeriodsOverlapping(ctx context.Context, from, to time.Time) ([]models.AcademicPeriod, error)
	UpdatePeriodStatus(ctx context.Context, id string, status models.PeriodStatus) error

	ListSectionsByPeriod(ctx context.Context, periodID string) ([]models.Section, error)
	ListRegistrationsByPeriod(ctx context.Context, periodID string) ([]models.SectionRegistration, error)
	ListStudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	ListTranscriptGradesByStudents(ctx context.Context, studentIDs []string) ([]models.StudentTranscriptGrade, error)

	// CreateRegistration inserts the row and books a seat on its section.
	CreateRegistration(ctx context.Context, reg models.SectionRegistration) error
	// DropRegistration flips REG to DROP and releases the seat.
	DropRegistration(ctx context.Context, id string, droppedOn time.Time) error
	UpdateAttendance(ctx context.Context, rates map[string]float64) error
	SetMidtermGrades(ctx context.Context, grades map[string]string) error
	SetFinalGrades(ctx context.Context, grades map[string]string) error

	UpsertRisk(ctx context.Context, risk models.StudentRisk) error
	ListRisksByPeriod(ctx context.Context, periodID string) ([]models.StudentRisk, error)

	// ClosePeriod writes the remaining finals, inserts missing transcript rows
	// and marks the period closed.
	ClosePeriod(ctx context.Context, periodID string, finals map[string]string, transcripts []models.StudentTranscriptGrade) error
}
