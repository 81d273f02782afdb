package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/grading"
	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
	"github.com/noah-isme/campus-sim/internal/repository"
	"github.com/noah-isme/campus-sim/internal/risk"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
)

const (
	tickDays            = 7
	earlyPhaseWeeks     = 3
	midtermPhaseStart   = 0.4
	midtermPhaseEnd     = 0.6
	latePhaseStart      = 0.8
	dropShareMin        = 0.02
	dropShareMax        = 0.05
	addsMin             = 1
	addsMax             = 5
	attendanceDrift     = 0.05
	defaultTickLockKey  = "campus-sim:tick-lock"
	defaultTickLockTTL  = 10 * time.Minute
	tickOutcomeSuccess  = "success"
	tickOutcomeRejected = "rejected"
	tickOutcomeFailed   = "failed"
)

type tickStore interface {
	GetSimulationState(ctx context.Context) (*models.SimulationState, error)
	SaveSimulationState(ctx context.Context, state models.SimulationState) error
	ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error)
	ListOpenPeriodsOverlapping(ctx context.Context, from, to time.Time) ([]models.AcademicPeriod, error)
	UpdatePeriodStatus(ctx context.Context, id string, status models.PeriodStatus) error
	ListSectionsByPeriod(ctx context.Context, periodID string) ([]models.Section, error)
	ListRegistrationsByPeriod(ctx context.Context, periodID string) ([]models.SectionRegistration, error)
	ListStudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	ListTranscriptGradesByStudents(ctx context.Context, studentIDs []string) ([]models.StudentTranscriptGrade, error)
	CreateRegistration(ctx context.Context, reg models.SectionRegistration) error
	DropRegistration(ctx context.Context, id string, droppedOn time.Time) error
	UpdateAttendance(ctx context.Context, rates map[string]float64) error
	SetMidtermGrades(ctx context.Context, grades map[string]string) error
	SetFinalGrades(ctx context.Context, grades map[string]string) error
	UpsertRisk(ctx context.Context, risk models.StudentRisk) error
	ClosePeriod(ctx context.Context, periodID string, finals map[string]string, transcripts []models.StudentTranscriptGrade) error
}

type tickLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (repository.ReleaseFunc, error)
}

// TickConfig tunes AdvanceWeek.
type TickConfig struct {
	Seed    int64
	LockKey string
	LockTTL time.Duration
}

// TickService advances the simulated world one week at a time.
type TickService struct {
	store   tickStore
	locker  tickLocker
	cache   cacheInvalidator
	metrics *MetricsService
	logger  *zap.Logger
	cfg     TickConfig
	now     func() time.Time
}

// NewTickService constructs the tick simulator. A nil locker falls back to an in-process lock.
func NewTickService(store tickStore, locker tickLocker, cache cacheInvalidator, metrics *MetricsService, logger *zap.Logger, cfg TickConfig) *TickService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = repository.NewMemoryLocker()
	}
	if cfg.LockKey == "" {
		cfg.LockKey = defaultTickLockKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultTickLockTTL
	}
	return &TickService{
		store:   store,
		locker:  locker,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock used for lastTickDate and the initial simulated date.
func (s *TickService) WithClock(now func() time.Time) *TickService {
	if now != nil {
		s.now = now
	}
	return s
}

// State returns the simulated clock. It is not found until the first tick after a seed.
func (s *TickService) State(ctx context.Context) (*models.SimulationState, error) {
	state, err := s.store.GetSimulationState(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation clock not started")
		}
		return nil, appErrors.Internal(err, "failed to load simulation state")
	}
	return state, nil
}

// AdvanceWeek runs one tick. Each logical unit inside is its own transaction;
// a failure stops the tick without rolling back earlier units.
func (s *TickService) AdvanceWeek(ctx context.Context) (*models.TickResult, error) {
	started := time.Now()

	release, err := s.locker.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, repository.ErrLockHeld) {
			s.metrics.ObserveTick(tickOutcomeRejected, time.Since(started), nil)
			return nil, appErrors.ErrTickInProgress
		}
		s.metrics.ObserveTick(tickOutcomeFailed, time.Since(started), nil)
		return nil, appErrors.Internal(err, "failed to acquire tick lock")
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("tick lock release failed", zap.Error(err))
		}
	}()

	result, err := s.advance(ctx)
	if err != nil {
		s.metrics.ObserveTick(tickOutcomeFailed, time.Since(started), nil)
		s.logger.Error("tick failed", zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveTick(tickOutcomeSuccess, time.Since(started), result)
	return result, nil
}

func (s *TickService) advance(ctx context.Context) (*models.TickResult, error) {
	current, err := s.currentDate(ctx)
	if err != nil {
		return nil, err
	}
	next := current.AddDate(0, 0, tickDays)
	rng := random.New(random.Derive(s.cfg.Seed, current))
	result := &models.TickResult{NewDate: next}

	periods, err := s.store.ListOpenPeriodsOverlapping(ctx, current, next)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list open periods")
	}

	for _, period := range periods {
		if period.Status == models.PeriodStatusFuture {
			if err := s.store.UpdatePeriodStatus(ctx, period.ID, models.PeriodStatusActive); err != nil {
				return nil, appErrors.Internal(err, "failed to activate period")
			}
			period.Status = models.PeriodStatusActive
		}
		if err := s.processPeriod(ctx, rng, period, current, next, result); err != nil {
			return nil, err
		}
		result.PeriodsProcessed++
	}

	tickedAt := s.now()
	if err := s.store.SaveSimulationState(ctx, models.SimulationState{
		ID:             models.SimulationStateID,
		CurrentSimDate: next,
		LastTickDate:   &tickedAt,
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to save simulation clock")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn("cache invalidation after tick failed", zap.Error(err))
		}
	}

	result.Success = true
	s.logger.Sugar().Infow("tick complete",
		"from", current.Format(time.DateOnly),
		"to", next.Format(time.DateOnly),
		"periods", result.PeriodsProcessed,
		"closed", result.PeriodsClosed,
		"dropped", result.Dropped,
		"added", result.Added,
		"midterms", result.MidtermsGraded,
		"finals", result.FinalsGraded,
		"risks", result.RisksUpserted,
		"transcripts", result.TranscriptsCreated,
	)
	return result, nil
}

// currentDate reads the clock, starting it at the active period's start
// (or today) when no tick has run since the last seed.
func (s *TickService) currentDate(ctx context.Context) (time.Time, error) {
	state, err := s.store.GetSimulationState(ctx)
	if err == nil {
		return state.CurrentSimDate.UTC(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, appErrors.Internal(err, "failed to load simulation state")
	}

	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return time.Time{}, appErrors.Internal(err, "failed to list periods")
	}
	if len(periods) == 0 {
		return time.Time{}, appErrors.ErrNotSeeded
	}
	for _, p := range periods {
		if p.Status == models.PeriodStatusActive {
			return p.StartOn.UTC(), nil
		}
	}
	return truncateDay(s.now()), nil
}

// periodWeek is the phase classification of one period in one tick.
type periodWeek struct {
	weeksInto  int
	totalWeeks int
	early      bool
	midterm    bool
	late       bool
	closing    bool
}

func classify(period models.AcademicPeriod, current, next time.Time) periodWeek {
	days := func(d time.Duration) float64 { return d.Hours() / 24 }

	weeksInto := int(math.Floor(days(current.Sub(period.StartOn)) / 7))
	if weeksInto < 0 {
		weeksInto = 0
	}
	totalWeeks := int(math.Ceil(days(period.EndOn.Sub(period.StartOn)) / 7))
	if totalWeeks < 1 {
		totalWeeks = 1
	}
	progress := float64(weeksInto) / float64(totalWeeks)

	return periodWeek{
		weeksInto:  weeksInto,
		totalWeeks: totalWeeks,
		early:      weeksInto < earlyPhaseWeeks,
		midterm:    progress >= midtermPhaseStart && progress <= midtermPhaseEnd,
		late:       progress >= latePhaseStart,
		closing:    !next.Before(period.EndOn),
	}
}

// periodState is the working copy of one period's rows during a tick.
type periodState struct {
	regs     []models.SectionRegistration
	students map[string]models.Student
	tallies  map[string]*grading.Tally
	graded   map[string]struct{}
}

func (p *periodState) tally(studentID string) *grading.Tally {
	if t, ok := p.tallies[studentID]; ok {
		return t
	}
	t := &grading.Tally{}
	p.tallies[studentID] = t
	return t
}

func (s *TickService) loadPeriodState(ctx context.Context, periodID string) (*periodState, error) {
	regs, err := s.store.ListRegistrationsByPeriod(ctx, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list registrations")
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, r := range regs {
		if _, ok := seen[r.StudentID]; !ok {
			seen[r.StudentID] = struct{}{}
			ids = append(ids, r.StudentID)
		}
	}

	students, err := s.store.ListStudentsByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	grades, err := s.store.ListTranscriptGradesByStudents(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list transcript grades")
	}

	state := &periodState{
		regs:     regs,
		students: make(map[string]models.Student, len(students)),
		tallies:  grading.TallyTranscripts(grades),
		graded:   make(map[string]struct{}),
	}
	for _, st := range students {
		state.students[st.ID] = st
	}
	for _, g := range grades {
		state.graded[g.RegistrationID] = struct{}{}
	}
	return state, nil
}

func (s *TickService) processPeriod(ctx context.Context, rng *random.Generator, period models.AcademicPeriod, current, next time.Time, result *models.TickResult) error {
	week := classify(period, current, next)
	state, err := s.loadPeriodState(ctx, period.ID)
	if err != nil {
		return err
	}

	if week.early {
		if err := s.churn(ctx, rng, period, current, state, result); err != nil {
			return err
		}
	}
	if err := s.driftAttendance(ctx, rng, state); err != nil {
		return err
	}
	if week.midterm {
		if err := s.gradeMidterms(ctx, rng, state, result); err != nil {
			return err
		}
	}
	if week.late {
		if err := s.gradeFinals(ctx, rng, state, result); err != nil {
			return err
		}
	}
	if err := s.recomputeRisks(ctx, period, next, state, result); err != nil {
		return err
	}
	if week.closing {
		if err := s.closePeriod(ctx, rng, period, state, result); err != nil {
			return err
		}
	}

	s.logger.Debug("period processed",
		zap.String("period", period.Code),
		zap.Int("week", week.weeksInto),
		zap.Int("weeks", week.totalWeeks),
		zap.Bool("early", week.early),
		zap.Bool("midterm", week.midterm),
		zap.Bool("late", week.late),
		zap.Bool("closing", week.closing),
	)
	return nil
}

// churn drops a share of REG rows and adds a few registrations for
// under-loaded students. Adds pick sections with seats left in the snapshot
// taken after the drops; the write itself does not re-check capacity.
func (s *TickService) churn(ctx context.Context, rng *random.Generator, period models.AcademicPeriod, current time.Time, state *periodState, result *models.TickResult) error {
	var active []int
	for i, r := range state.regs {
		if r.IsRegistered() {
			active = append(active, i)
		}
	}
	drops := int(math.Round(float64(len(active)) * rng.Float(dropShareMin, dropShareMax)))
	random.Shuffle(rng, active)
	for _, idx := range active[:drops] {
		reg := &state.regs[idx]
		if err := s.store.DropRegistration(ctx, reg.ID, current); err != nil {
			return appErrors.Internal(err, "failed to drop registration")
		}
		droppedOn := current
		reg.StatusCode = models.RegistrationStatusDropped
		reg.DroppedOn = &droppedOn
		result.Dropped++
	}

	sections, err := s.store.ListSectionsByPeriod(ctx, period.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to list sections")
	}

	credits := make(map[string]int)
	heldCourses := make(map[string]map[string]struct{})
	heldSections := make(map[string]map[string]struct{})
	var order []string
	for _, r := range state.regs {
		if _, ok := heldSections[r.StudentID]; !ok {
			heldSections[r.StudentID] = make(map[string]struct{})
			heldCourses[r.StudentID] = make(map[string]struct{})
			order = append(order, r.StudentID)
		}
		heldSections[r.StudentID][r.SectionID] = struct{}{}
		if r.IsRegistered() {
			credits[r.StudentID] += r.Credits
			heldCourses[r.StudentID][r.CourseID] = struct{}{}
		}
	}

	var under []string
	for _, id := range order {
		st, ok := state.students[id]
		if ok && st.IsActive() && credits[id] < minimumCredits(st) {
			under = append(under, id)
		}
	}
	sort.Strings(under)
	random.Shuffle(rng, under)

	adds := rng.Int(addsMin, addsMax)
	for _, id := range under {
		if adds == 0 {
			break
		}
		st := state.students[id]
		var open []models.Section
		for _, sec := range sections {
			if sec.Level != st.AcademicLevel || sec.Available <= 0 {
				continue
			}
			if _, ok := heldSections[id][sec.ID]; ok {
				continue
			}
			if _, ok := heldCourses[id][sec.CourseID]; ok {
				continue
			}
			open = append(open, sec)
		}
		if len(open) == 0 {
			continue
		}

		sec := random.Choice(rng, open)
		reg := models.SectionRegistration{
			ID:             models.NewID("registration", id, sec.ID),
			StudentID:      id,
			SectionID:      sec.ID,
			PeriodID:       period.ID,
			CourseID:       sec.CourseID,
			StatusCode:     models.RegistrationStatusRegistered,
			Credits:        sec.Credits,
			AttendanceRate: risk.Derate(st, rng.Float(baseAttendanceMin, baseAttendanceMax)),
			RegisteredOn:   current,
		}
		if err := s.store.CreateRegistration(ctx, reg); err != nil {
			return appErrors.Internal(err, "failed to add registration")
		}
		state.regs = append(state.regs, reg)
		heldSections[id][sec.ID] = struct{}{}
		heldCourses[id][sec.CourseID] = struct{}{}
		result.Added++
		adds--
	}
	return nil
}

func (s *TickService) driftAttendance(ctx context.Context, rng *random.Generator, state *periodState) error {
	rates := make(map[string]float64)
	for i := range state.regs {
		reg := &state.regs[i]
		if !reg.IsRegistered() {
			continue
		}
		rate := math.Max(0, math.Min(1, reg.AttendanceRate+rng.Float(-attendanceDrift, attendanceDrift)))
		if st, ok := state.students[reg.StudentID]; ok {
			rate = risk.Derate(st, rate)
		}
		reg.AttendanceRate = rate
		rates[reg.ID] = rate
	}
	if err := s.store.UpdateAttendance(ctx, rates); err != nil {
		return appErrors.Internal(err, "failed to update attendance")
	}
	return nil
}

func (s *TickService) gradeMidterms(ctx context.Context, rng *random.Generator, state *periodState, result *models.TickResult) error {
	grades := make(map[string]string)
	for i := range state.regs {
		reg := &state.regs[i]
		if !reg.IsRegistered() || reg.MidtermGrade != nil {
			continue
		}
		cumulative := state.tally(reg.StudentID).GPAOr(grading.BaselineGPA)
		letter := grading.Letter(rng, grading.Target(rng, cumulative, reg.AttendanceRate))
		reg.MidtermGrade = &letter
		grades[reg.ID] = letter
	}
	if err := s.store.SetMidtermGrades(ctx, grades); err != nil {
		return appErrors.Internal(err, "failed to set midterm grades")
	}
	result.MidtermsGraded += len(grades)
	return nil
}

func (s *TickService) finalLetter(rng *random.Generator, state *periodState, reg *models.SectionRegistration) string {
	cumulative := state.tally(reg.StudentID).GPAOr(grading.BaselineGPA)
	return grading.Letter(rng, grading.FinalTarget(rng, cumulative, reg.AttendanceRate, reg.MidtermGrade))
}

func (s *TickService) gradeFinals(ctx context.Context, rng *random.Generator, state *periodState, result *models.TickResult) error {
	grades := make(map[string]string)
	for i := range state.regs {
		reg := &state.regs[i]
		if !reg.IsRegistered() || reg.FinalGrade != nil {
			continue
		}
		letter := s.finalLetter(rng, state, reg)
		reg.FinalGrade = &letter
		grades[reg.ID] = letter
	}
	if err := s.store.SetFinalGrades(ctx, grades); err != nil {
		return appErrors.Internal(err, "failed to set final grades")
	}
	result.FinalsGraded += len(grades)
	return nil
}

// recomputeRisks upserts one row per active student with any registration in
// the period. Attendance averages the REG rows, or every row once all of the
// student's registrations were dropped.
func (s *TickService) recomputeRisks(ctx context.Context, period models.AcademicPeriod, next time.Time, state *periodState, result *models.TickResult) error {
	type agg struct {
		regSum, allSum     float64
		regCount, allCount int
	}
	attendance := make(map[string]*agg)
	var order []string
	for _, reg := range state.regs {
		a, ok := attendance[reg.StudentID]
		if !ok {
			a = &agg{}
			attendance[reg.StudentID] = a
			order = append(order, reg.StudentID)
		}
		a.allSum += reg.AttendanceRate
		a.allCount++
		if reg.IsRegistered() {
			a.regSum += reg.AttendanceRate
			a.regCount++
		}
	}

	for _, id := range order {
		st, ok := state.students[id]
		if !ok || !st.IsActive() {
			continue
		}
		a := attendance[id]
		rate := a.allSum / float64(a.allCount)
		if a.regCount > 0 {
			rate = a.regSum / float64(a.regCount)
		}
		row := risk.Score(st, rate, state.tally(id).GPA()).Row(id, period.ID)
		row.ComputedOn = next
		if err := s.store.UpsertRisk(ctx, row); err != nil {
			return appErrors.Internal(err, "failed to upsert student risk")
		}
		result.RisksUpserted++
	}
	return nil
}

// closePeriod finalizes every registration and marks the period closed in one unit.
func (s *TickService) closePeriod(ctx context.Context, rng *random.Generator, period models.AcademicPeriod, state *periodState, result *models.TickResult) error {
	finals := make(map[string]string)
	var transcripts []models.StudentTranscriptGrade
	for i := range state.regs {
		reg := &state.regs[i]
		if reg.FinalGrade == nil {
			letter := grading.Withdrawn
			if reg.IsRegistered() {
				letter = s.finalLetter(rng, state, reg)
			}
			reg.FinalGrade = &letter
			finals[reg.ID] = letter
		}
		if _, ok := state.graded[reg.ID]; ok {
			continue
		}
		transcripts = append(transcripts, grading.TranscriptGrade(*reg, *reg.FinalGrade))
		state.graded[reg.ID] = struct{}{}
	}

	if err := s.store.ClosePeriod(ctx, period.ID, finals, transcripts); err != nil {
		return appErrors.Internal(err, "failed to close period")
	}
	result.FinalsGraded += len(finals)
	result.TranscriptsCreated += len(transcripts)
	result.PeriodsClosed++
	return nil
}
