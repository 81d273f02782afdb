package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/campus-sim/internal/models"
)

// MemoryStore keeps the dataset in process. Each method holds the lock for
// its whole body, which makes every call atomic.
type MemoryStore struct {
	mu sync.RWMutex

	state         *models.SimulationState
	periods       []models.AcademicPeriod
	programs      []models.AcademicProgram
	courses       []models.Course
	sections      []models.Section
	persons       []models.Person
	students      []models.Student
	registrations []models.SectionRegistration
	transcripts   []models.StudentTranscriptGrade
	credentials   []models.AcademicCredential
	risks         []models.StudentRisk

	periodIdx       map[string]int
	sectionIdx      map[string]int
	studentIdx      map[string]int
	registrationIdx map[string]int
	transcriptByReg map[string]int
	riskIdx         map[models.RiskKey]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reindex()
	return s
}

func (s *MemoryStore) reindex() {
	s.periodIdx = make(map[string]int, len(s.periods))
	for i, p := range s.periods {
		s.periodIdx[p.ID] = i
	}
	s.sectionIdx = make(map[string]int, len(s.sections))
	for i, sec := range s.sections {
		s.sectionIdx[sec.ID] = i
	}
	s.studentIdx = make(map[string]int, len(s.students))
	for i, st := range s.students {
		s.studentIdx[st.ID] = i
	}
	s.registrationIdx = make(map[string]int, len(s.registrations))
	for i, r := range s.registrations {
		s.registrationIdx[r.ID] = i
	}
	s.transcriptByReg = make(map[string]int, len(s.transcripts))
	for i, g := range s.transcripts {
		s.transcriptByReg[g.RegistrationID] = i
	}
	s.riskIdx = make(map[models.RiskKey]int, len(s.risks))
	for i, r := range s.risks {
		s.riskIdx[r.Key()] = i
	}
}

// ReplaceAll implements Store.
func (s *MemoryStore) ReplaceAll(ctx context.Context, data *models.Dataset) error {
	if data == nil {
		return fmt.Errorf("replace dataset: nil dataset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = nil
	s.periods = append([]models.AcademicPeriod(nil), data.Periods...)
	s.programs = append([]models.AcademicProgram(nil), data.Programs...)
	s.courses = append([]models.Course(nil), data.Courses...)
	s.sections = append([]models.Section(nil), data.Sections...)
	s.persons = append([]models.Person(nil), data.Persons...)
	s.students = append([]models.Student(nil), data.Students...)
	s.registrations = make([]models.SectionRegistration, len(data.Registrations))
	for i, r := range data.Registrations {
		s.registrations[i] = cloneRegistration(r)
	}
	s.transcripts = append([]models.StudentTranscriptGrade(nil), data.Transcripts...)
	s.credentials = append([]models.AcademicCredential(nil), data.Credentials...)
	s.risks = append([]models.StudentRisk(nil), data.Risks...)
	s.reindex()

	if len(s.transcriptByReg) != len(s.transcripts) {
		return fmt.Errorf("replace dataset: duplicate transcript grade for a registration")
	}
	return nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]models.SectionRegistration, len(s.registrations))
	for i, r := range s.registrations {
		regs[i] = cloneRegistration(r)
	}
	return &models.Dataset{
		Periods:       append([]models.AcademicPeriod(nil), s.periods...),
		Programs:      append([]models.AcademicProgram(nil), s.programs...),
		Courses:       append([]models.Course(nil), s.courses...),
		Sections:      append([]models.Section(nil), s.sections...),
		Persons:       append([]models.Person(nil), s.persons...),
		Students:      append([]models.Student(nil), s.students...),
		Registrations: regs,
		Transcripts:   append([]models.StudentTranscriptGrade(nil), s.transcripts...),
		Credentials:   append([]models.AcademicCredential(nil), s.credentials...),
		Risks:         append([]models.StudentRisk(nil), s.risks...),
	}, nil
}

// GetSimulationState implements Store.
func (s *MemoryStore) GetSimulationState(ctx context.Context) (*models.SimulationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sql.ErrNoRows
	}
	state := *s.state
	return &state, nil
}

// SaveSimulationState implements Store.
func (s *MemoryStore) SaveSimulationState(ctx context.Context, state models.SimulationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.ID = models.SimulationStateID
	s.state = &state
	return nil
}

// ListPeriods implements Store.
func (s *MemoryStore) ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.AcademicPeriod(nil), s.periods...)
	sortPeriods(out)
	return out, nil
}

// FindPeriodByCode implements Store.
func (s *MemoryStore) FindPeriodByCode(ctx context.Context, code string) (*models.AcademicPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.periods {
		if p.Code == code {
			period := p
			return &period, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ListOpenPeriodsOverlapping implements Store.
func (s *MemoryStore) ListOpenPeriodsOverlapping(ctx context.Context, from, to time.Time) ([]models.AcademicPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AcademicPeriod
	for _, p := range s.periods {
		if p.Status != models.PeriodStatusClosed && p.Overlaps(from, to) {
			out = append(out, p)
		}
	}
	sortPeriods(out)
	return out, nil
}

// UpdatePeriodStatus implements Store.
func (s *MemoryStore) UpdatePeriodStatus(ctx context.Context, id string, status models.PeriodStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.periodIdx[id]
	if !ok {
		return sql.ErrNoRows
	}
	if s.periods[idx].Status == models.PeriodStatusClosed && status != models.PeriodStatusClosed {
		return fmt.Errorf("update period %s: period is closed", id)
	}
	s.periods[idx].Status = status
	return nil
}

// ListSectionsByPeriod implements Store.
func (s *MemoryStore) ListSectionsByPeriod(ctx context.Context, periodID string) ([]models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Section
	for _, sec := range s.sections {
		if sec.PeriodID == periodID {
			out = append(out, sec)
		}
	}
	return out, nil
}

// ListRegistrationsByPeriod implements Store.
func (s *MemoryStore) ListRegistrationsByPeriod(ctx context.Context, periodID string) ([]models.SectionRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SectionRegistration
	for _, r := range s.registrations {
		if r.PeriodID == periodID {
			out = append(out, cloneRegistration(r))
		}
	}
	return out, nil
}

// ListStudentsByIDs implements Store.
func (s *MemoryStore) ListStudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if idx, ok := s.studentIdx[id]; ok {
			out = append(out, s.students[idx])
		}
	}
	return out, nil
}

// ListTranscriptGradesByStudents implements Store.
func (s *MemoryStore) ListTranscriptGradesByStudents(ctx context.Context, studentIDs []string) ([]models.StudentTranscriptGrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	var out []models.StudentTranscriptGrade
	for _, g := range s.transcripts {
		if _, ok := wanted[g.StudentID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// CreateRegistration implements Store.
func (s *MemoryStore) CreateRegistration(ctx context.Context, reg models.SectionRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registrationIdx[reg.ID]; exists {
		return fmt.Errorf("create registration %s: already exists", reg.ID)
	}
	secIdx, ok := s.sectionIdx[reg.SectionID]
	if !ok {
		return fmt.Errorf("create registration %s: %w", reg.ID, sql.ErrNoRows)
	}
	if reg.IsRegistered() {
		s.sections[secIdx].Enroll()
	}
	s.registrations = append(s.registrations, cloneRegistration(reg))
	s.registrationIdx[reg.ID] = len(s.registrations) - 1
	return nil
}

// DropRegistration implements Store.
func (s *MemoryStore) DropRegistration(ctx context.Context, id string, droppedOn time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.registrationIdx[id]
	if !ok {
		return sql.ErrNoRows
	}
	reg := &s.registrations[idx]
	if !reg.IsRegistered() {
		return nil
	}
	reg.StatusCode = models.RegistrationStatusDropped
	dropped := droppedOn
	reg.DroppedOn = &dropped
	if secIdx, ok := s.sectionIdx[reg.SectionID]; ok {
		s.sections[secIdx].Release()
	}
	return nil
}

// UpdateAttendance implements Store.
func (s *MemoryStore) UpdateAttendance(ctx context.Context, rates map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rate := range rates {
		idx, ok := s.registrationIdx[id]
		if !ok {
			return fmt.Errorf("update attendance %s: %w", id, sql.ErrNoRows)
		}
		s.registrations[idx].AttendanceRate = rate
	}
	return nil
}

// SetMidtermGrades implements Store.
func (s *MemoryStore) SetMidtermGrades(ctx context.Context, grades map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, letter := range grades {
		idx, ok := s.registrationIdx[id]
		if !ok {
			return fmt.Errorf("set midterm grade %s: %w", id, sql.ErrNoRows)
		}
		l := letter
		s.registrations[idx].MidtermGrade = &l
	}
	return nil
}

// SetFinalGrades implements Store.
func (s *MemoryStore) SetFinalGrades(ctx context.Context, grades map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFinalGradesLocked(grades)
}

func (s *MemoryStore) setFinalGradesLocked(grades map[string]string) error {
	for id, letter := range grades {
		idx, ok := s.registrationIdx[id]
		if !ok {
			return fmt.Errorf("set final grade %s: %w", id, sql.ErrNoRows)
		}
		l := letter
		s.registrations[idx].FinalGrade = &l
	}
	return nil
}

// UpsertRisk implements Store.
func (s *MemoryStore) UpsertRisk(ctx context.Context, risk models.StudentRisk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.riskIdx[risk.Key()]; ok {
		s.risks[idx] = risk
		return nil
	}
	s.risks = append(s.risks, risk)
	s.riskIdx[risk.Key()] = len(s.risks) - 1
	return nil
}

// ListRisksByPeriod implements Store.
func (s *MemoryStore) ListRisksByPeriod(ctx context.Context, periodID string) ([]models.StudentRisk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StudentRisk
	for _, r := range s.risks {
		if r.PeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ClosePeriod implements Store.
func (s *MemoryStore) ClosePeriod(ctx context.Context, periodID string, finals map[string]string, transcripts []models.StudentTranscriptGrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pIdx, ok := s.periodIdx[periodID]
	if !ok {
		return sql.ErrNoRows
	}
	for id := range finals {
		if _, ok := s.registrationIdx[id]; !ok {
			return fmt.Errorf("close period %s: registration %s: %w", periodID, id, sql.ErrNoRows)
		}
	}
	if err := s.setFinalGradesLocked(finals); err != nil {
		return err
	}
	for _, g := range transcripts {
		if _, exists := s.transcriptByReg[g.RegistrationID]; exists {
			continue
		}
		s.transcripts = append(s.transcripts, g)
		s.transcriptByReg[g.RegistrationID] = len(s.transcripts) - 1
	}
	s.periods[pIdx].Status = models.PeriodStatusClosed
	return nil
}

func cloneRegistration(r models.SectionRegistration) models.SectionRegistration {
	if r.MidtermGrade != nil {
		v := *r.MidtermGrade
		r.MidtermGrade = &v
	}
	if r.FinalGrade != nil {
		v := *r.FinalGrade
		r.FinalGrade = &v
	}
	if r.DroppedOn != nil {
		v := *r.DroppedOn
		r.DroppedOn = &v
	}
	return r
}

func sortPeriods(periods []models.AcademicPeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartOn.Before(periods[j].StartOn)
	})
}
