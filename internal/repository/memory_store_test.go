package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/models"
)

func fixtureDataset() *models.Dataset {
	start := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	return &models.Dataset{
		Periods: []models.AcademicPeriod{
			{ID: "p2", Code: "2020SP", StartOn: start, EndOn: start.AddDate(0, 0, 111), Status: models.PeriodStatusActive},
			{ID: "p1", Code: "2019FA", StartOn: start.AddDate(0, -5, 0), EndOn: start.AddDate(0, 0, -30), Status: models.PeriodStatusClosed},
		},
		Sections: []models.Section{
			{ID: "sec1", PeriodID: "p2", Capacity: 2, Enrolled: 1, Available: 1},
		},
		Students: []models.Student{
			{ID: "s1", Status: models.StudentStatusActive},
			{ID: "s2", Status: models.StudentStatusActive},
		},
		Registrations: []models.SectionRegistration{
			{ID: "r1", StudentID: "s1", SectionID: "sec1", PeriodID: "p2", StatusCode: models.RegistrationStatusRegistered, Credits: 3, AttendanceRate: 0.9},
		},
	}
}

func newSeededMemoryStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	require.NoError(t, store.ReplaceAll(context.Background(), fixtureDataset()))
	return store
}

func sectionByID(t *testing.T, store *MemoryStore, periodID, id string) models.Section {
	sections, err := store.ListSectionsByPeriod(context.Background(), periodID)
	require.NoError(t, err)
	for _, s := range sections {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("section %s not found", id)
	return models.Section{}
}

func TestMemoryStoreSimulationStateMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetSimulationState(context.Background())
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	day := time.Date(2020, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSimulationState(context.Background(), models.SimulationState{CurrentSimDate: day}))
	state, err := store.GetSimulationState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SimulationStateID, state.ID)
	assert.True(t, state.CurrentSimDate.Equal(day))
}

func TestMemoryStoreReplaceAllResetsClock(t *testing.T) {
	store := newSeededMemoryStore(t)
	require.NoError(t, store.SaveSimulationState(context.Background(), models.SimulationState{CurrentSimDate: time.Now()}))
	require.NoError(t, store.ReplaceAll(context.Background(), fixtureDataset()))

	_, err := store.GetSimulationState(context.Background())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMemoryStoreOpenPeriodsExcludeClosed(t *testing.T) {
	store := newSeededMemoryStore(t)
	from := time.Date(2019, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	periods, err := store.ListOpenPeriodsOverlapping(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "p2", periods[0].ID)

	all, err := store.ListPeriods(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID, "periods are ordered by start date")
}

func TestMemoryStoreClosedPeriodCannotReopen(t *testing.T) {
	store := newSeededMemoryStore(t)
	err := store.UpdatePeriodStatus(context.Background(), "p1", models.PeriodStatusActive)
	require.Error(t, err)

	err = store.UpdatePeriodStatus(context.Background(), "missing", models.PeriodStatusActive)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMemoryStoreRegistrationKeepsSeatCounters(t *testing.T) {
	store := newSeededMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRegistration(ctx, models.SectionRegistration{ID: "r2", StudentID: "s2", SectionID: "sec1", PeriodID: "p2", StatusCode: models.RegistrationStatusRegistered}))
	sec := sectionByID(t, store, "p2", "sec1")
	assert.Equal(t, 2, sec.Enrolled)
	assert.Equal(t, 0, sec.Available)

	dropped := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.DropRegistration(ctx, "r1", dropped))
	require.NoError(t, store.DropRegistration(ctx, "r1", dropped))
	sec = sectionByID(t, store, "p2", "sec1")
	assert.Equal(t, 1, sec.Enrolled)
	assert.Equal(t, sec.Capacity, sec.Enrolled+sec.Available)

	regs, err := store.ListRegistrationsByPeriod(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, models.RegistrationStatusDropped, regs[0].StatusCode)
	require.NotNil(t, regs[0].DroppedOn)
	assert.True(t, regs[0].DroppedOn.Equal(dropped))
}

func TestMemoryStoreCreateRegistrationRejectsDuplicates(t *testing.T) {
	store := newSeededMemoryStore(t)
	err := store.CreateRegistration(context.Background(), models.SectionRegistration{ID: "r1", SectionID: "sec1"})
	require.Error(t, err)

	err = store.CreateRegistration(context.Background(), models.SectionRegistration{ID: "r9", SectionID: "nope"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMemoryStoreListedRowsAreCopies(t *testing.T) {
	store := newSeededMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetMidtermGrades(ctx, map[string]string{"r1": "B"}))

	regs, err := store.ListRegistrationsByPeriod(ctx, "p2")
	require.NoError(t, err)
	*regs[0].MidtermGrade = "F"

	again, err := store.ListRegistrationsByPeriod(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "B", *again[0].MidtermGrade)
}

func TestMemoryStoreUpsertRiskIsIdempotent(t *testing.T) {
	store := newSeededMemoryStore(t)
	ctx := context.Background()

	row := models.StudentRisk{StudentID: "s1", PeriodID: "p2", AttendanceRiskScore: 0.1, OverallRiskBucket: models.RiskBucketLow}
	require.NoError(t, store.UpsertRisk(ctx, row))
	row.AttendanceRiskScore = 0.6
	row.OverallRiskBucket = models.RiskBucketMedium
	require.NoError(t, store.UpsertRisk(ctx, row))

	risks, err := store.ListRisksByPeriod(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, 0.6, risks[0].AttendanceRiskScore)
	assert.Equal(t, models.RiskBucketMedium, risks[0].OverallRiskBucket)
}

func TestMemoryStoreClosePeriodWritesOneTranscriptPerRegistration(t *testing.T) {
	store := newSeededMemoryStore(t)
	ctx := context.Background()
	grade := models.StudentTranscriptGrade{ID: "g1", StudentID: "s1", RegistrationID: "r1", PeriodID: "p2", GradeValue: "A"}

	require.NoError(t, store.ClosePeriod(ctx, "p2", map[string]string{"r1": "A"}, []models.StudentTranscriptGrade{grade}))
	grade.ID = "g2"
	require.NoError(t, store.ClosePeriod(ctx, "p2", nil, []models.StudentTranscriptGrade{grade}))

	grades, err := store.ListTranscriptGradesByStudents(ctx, []string{"s1"})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "g1", grades[0].ID)

	regs, err := store.ListRegistrationsByPeriod(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, regs[0].FinalGrade)
	assert.Equal(t, "A", *regs[0].FinalGrade)

	open, err := store.ListOpenPeriodsOverlapping(ctx, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMemoryStoreClosePeriodUnknownRegistrationLeavesPeriodOpen(t *testing.T) {
	store := newSeededMemoryStore(t)
	ctx := context.Background()

	err := store.ClosePeriod(ctx, "p2", map[string]string{"ghost": "A"}, nil)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	period, err := store.FindPeriodByCode(ctx, "2020SP")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodStatusActive, period.Status)
}

func TestMemoryStoreReplaceAllRejectsDuplicateTranscripts(t *testing.T) {
	data := fixtureDataset()
	data.Transcripts = []models.StudentTranscriptGrade{
		{ID: "g1", RegistrationID: "r1"},
		{ID: "g2", RegistrationID: "r1"},
	}
	err := NewMemoryStore().ReplaceAll(context.Background(), data)
	require.Error(t, err)
}
