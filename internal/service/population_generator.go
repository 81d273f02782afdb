package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/grading"
	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
	"github.com/noah-isme/campus-sim/internal/risk"
)

// Attribute probabilities drawn once per student.
const (
	probFirstGen          = 0.35
	probPellEligible      = 0.40
	probInState           = 0.70
	probElevatedWork      = 0.30
	probElevatedCommute   = 0.25
	probHousingInstable   = 0.10
	probInternational     = 0.25
	shareUndergraduate    = 0.80
	shareTraditional      = 0.75
	fullTimeTraditional   = 0.80
	fullTimeNontrad       = 0.55
	fullTimeGraduate      = 0.60
	retentionUG           = 0.80
	retentionGR           = 0.88
	graduationUG          = 0.65
	graduationGR          = 0.80
	summerParticipation   = 0.30
	maxHistoryYears       = 6
	creditOvershoot       = 1
	baseAttendanceMin     = 0.7
	baseAttendanceMax     = 1.0
	registrationLeadDays  = registrationOpensDays
	retentionCheckFallNum = 2
)

var firstNames = []string{"Aaliyah", "Ben", "Carmen", "Dmitri", "Elena", "Farah", "Gabriel", "Hana", "Isaac", "Jamal", "Keiko", "Liam", "Maya", "Noah", "Olivia", "Priya", "Quinn", "Rafael", "Sofia", "Tariq", "Uma", "Victor", "Wen", "Ximena", "Yusuf", "Zoe"}

var lastNames = []string{"Adams", "Baker", "Chen", "Diaz", "Edwards", "Fischer", "Garcia", "Hughes", "Ibrahim", "Johnson", "Kim", "Lopez", "Martin", "Nguyen", "Okafor", "Patel", "Rossi", "Smith", "Tanaka", "Usman", "Valdez", "Williams", "Xu", "Young", "Zimmerman"}

var foreignCitizenships = []string{"CA", "CN", "IN", "KR", "MX", "NG", "BR", "DE"}

var genders = []random.Weighted[string]{
	{Item: models.GenderFemale, Weight: 0.52},
	{Item: models.GenderMale, Weight: 0.45},
	{Item: models.GenderNonBinary, Weight: 0.03},
}

// PopulationConfig parameterises the population run.
type PopulationConfig struct {
	TotalStudents int
	// Now bounds the backfill: registration windows must have opened and
	// terms must have ended before grades are written.
	Now time.Time
}

// Population is the generated people and history.
type Population struct {
	Persons       []models.Person
	Students      []models.Student
	Registrations []models.SectionRegistration
	Transcripts   []models.StudentTranscriptGrade
	Credentials   []models.AcademicCredential
	Risks         []models.StudentRisk
}

// PopulationGenerator creates students and backfills their history.
type PopulationGenerator struct {
	logger *zap.Logger
}

// NewPopulationGenerator constructs the generator.
func NewPopulationGenerator(logger *zap.Logger) *PopulationGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopulationGenerator{logger: logger}
}

type cohort struct {
	entry models.AcademicPeriod
	size  int
}

type sectionKey struct {
	periodID string
	level    string
}

// populationRun carries the state of one Generate call.
type populationRun struct {
	rng      *random.Generator
	ref      *ReferenceData
	now      time.Time
	out      *Population
	programs map[string][]models.AcademicProgram
	byLevel  map[sectionKey][]int
	seq      int
}

// Generate draws the population against ref. Section counters in ref are
// incremented in place together with each registration.
func (g *PopulationGenerator) Generate(rng *random.Generator, ref *ReferenceData, cfg PopulationConfig) *Population {
	run := newPopulationRun(rng, ref, cfg.Now)
	for _, c := range g.cohorts(ref.Periods, cfg.TotalStudents) {
		for i := 0; i < c.size; i++ {
			run.student(c.entry)
		}
	}

	g.logger.Sugar().Infow("population generated",
		"students", len(run.out.Students),
		"registrations", len(run.out.Registrations),
		"transcripts", len(run.out.Transcripts),
		"credentials", len(run.out.Credentials),
		"risks", len(run.out.Risks),
	)
	return run.out
}

func newPopulationRun(rng *random.Generator, ref *ReferenceData, now time.Time) *populationRun {
	run := &populationRun{
		rng:      rng,
		ref:      ref,
		now:      now,
		out:      &Population{},
		programs: make(map[string][]models.AcademicProgram),
		byLevel:  make(map[sectionKey][]int),
	}
	for _, p := range ref.Programs {
		run.programs[p.Level] = append(run.programs[p.Level], p)
	}
	for i, s := range ref.Sections {
		key := sectionKey{periodID: s.PeriodID, level: s.Level}
		run.byLevel[key] = append(run.byLevel[key], i)
	}
	return run
}

// cohorts spreads total across one cohort per Fall, later years weighted
// heavier. Falls missing from the catalog drop their share.
func (g *PopulationGenerator) cohorts(periods []models.AcademicPeriod, total int) []cohort {
	if len(periods) == 0 || total <= 0 {
		return nil
	}
	first, last := periods[0].StartOn.Year(), periods[len(periods)-1].StartOn.Year()
	falls := make(map[int]models.AcademicPeriod)
	for _, p := range periods {
		if p.TermType == models.TermTypeFall {
			falls[p.StartOn.Year()] = p
		}
	}

	years := last - first + 1
	weightSum := years * (years + 1) / 2
	var out []cohort
	assigned := 0
	for i := 0; i < years; i++ {
		year := first + i
		size := total * (i + 1) / weightSum
		if i == years-1 {
			size = total - assigned
		}
		assigned += size

		entry, ok := falls[year]
		if !ok {
			g.logger.Debug("cohort skipped: no entry period", zap.Int("year", year))
			continue
		}
		out = append(out, cohort{entry: entry, size: size})
	}
	return out
}

func (r *populationRun) student(entry models.AcademicPeriod) {
	r.seq++
	rng := r.rng

	undergrad := rng.Bool(shareUndergraduate)
	level, studentType := models.LevelGraduate, models.StudentTypeGraduate
	if undergrad {
		level, studentType = models.LevelUndergraduate, models.StudentTypeUndergraduate
	}

	var traditional, fullTime bool
	var age int
	switch {
	case undergrad && rng.Bool(shareTraditional):
		traditional = true
		age = rng.Int(18, 19)
		fullTime = rng.Bool(fullTimeTraditional)
	case undergrad:
		age = rng.Int(23, 40)
		fullTime = rng.Bool(fullTimeNontrad)
	default:
		age = rng.Int(22, 35)
		fullTime = rng.Bool(fullTimeGraduate)
	}

	inState := rng.Bool(probInState)
	residency, citizenship := models.ResidencyInState, "US"
	if !inState {
		residency = models.ResidencyOutOfState
		if rng.Bool(probInternational) {
			residency = models.ResidencyInternational
			citizenship = random.Choice(rng, foreignCitizenships)
		}
	}

	work := rng.Int(0, 15)
	if rng.Bool(probElevatedWork) {
		work = rng.Int(models.ElevatedWorkHoursThreshold, 35)
	}
	commute := rng.Int(5, 40)
	if rng.Bool(probElevatedCommute) {
		commute = rng.Int(models.ElevatedCommuteThreshold, 90)
	}

	person := models.Person{
		ID:          models.NewID("person", fmt.Sprint(r.seq)),
		FirstName:   random.Choice(rng, firstNames),
		LastName:    random.Choice(rng, lastNames),
		BirthDate:   entry.StartOn.AddDate(-age, 0, -rng.Int(0, 364)),
		Gender:      random.WeightedChoice(rng, genders),
		Citizenship: citizenship,
	}
	program := random.Choice(rng, r.programs[level])
	student := models.Student{
		ID:                    models.NewID("student", fmt.Sprint(r.seq)),
		PersonID:              person.ID,
		ProgramID:             program.ID,
		EntryPeriodID:         entry.ID,
		Type:                  studentType,
		Status:                models.StudentStatusActive,
		AcademicLevel:         level,
		Residency:             residency,
		FullTime:              fullTime,
		Traditional:           traditional,
		IsFirstGen:            rng.Bool(probFirstGen),
		IsPellEligible:        rng.Bool(probPellEligible),
		IsInState:             inState,
		WorkHoursPerWeek:      work,
		CommuteMinutes:        commute,
		HasHousingInstability: rng.Bool(probHousingInstable),
	}

	graduationRate := graduationGR
	if undergrad {
		graduationRate = graduationUG
	}
	willGraduate := rng.Bool(graduationRate)

	r.backfill(&student, program, entry, willGraduate)

	r.out.Persons = append(r.out.Persons, person)
	r.out.Students = append(r.out.Students, student)
}

func (r *populationRun) backfill(student *models.Student, program models.AcademicProgram, entry models.AcademicPeriod, willGraduate bool) {
	var (
		tally   grading.Tally
		falls   int
		awardBy *time.Time
	)
	horizon := entry.StartOn.AddDate(maxHistoryYears, 0, 0)
	retention := retentionGR
	if student.AcademicLevel == models.LevelUndergraduate {
		retention = retentionUG
	}

	for _, period := range r.ref.Periods {
		if period.StartOn.Before(entry.StartOn) {
			continue
		}
		if !period.StartOn.Before(horizon) || period.RegistrationStartOn.After(r.now) {
			return
		}
		if awardBy != nil && period.StartOn.After(*awardBy) {
			return
		}

		if period.TermType == models.TermTypeFall {
			falls++
			if falls == retentionCheckFallNum && !r.rng.Bool(retention) {
				student.Status = models.StudentStatusInactive
				return
			}
		}
		if period.TermType == models.TermTypeSummer && !r.rng.Bool(summerParticipation) {
			continue
		}

		regs := r.register(*student, period, creditTarget(r.rng, *student, willGraduate, period.TermType))
		if len(regs) == 0 {
			continue
		}

		prior := tally.GPA()
		r.out.Risks = append(r.out.Risks, r.riskRow(*student, period, regs, prior))

		if !period.EndOn.Before(r.now) {
			continue
		}
		cumulative := tally.GPAOr(grading.BaselineGPA)
		for i := range regs {
			reg := &r.out.Registrations[regs[i]]
			final := grading.Letter(r.rng, grading.Target(r.rng, cumulative, reg.AttendanceRate))
			midterm := grading.Letter(r.rng, grading.Target(r.rng, cumulative, reg.AttendanceRate))
			reg.MidtermGrade = &midterm
			reg.FinalGrade = &final
			r.out.Transcripts = append(r.out.Transcripts, grading.TranscriptGrade(*reg, final))
		}
		for _, idx := range regs {
			reg := r.out.Registrations[idx]
			tally.Add(*reg.FinalGrade, reg.Credits)
		}

		if willGraduate && awardBy == nil && tally.CreditsEarned >= program.CreditsRequired {
			// The award term may still be running; history continues up to it.
			award := r.awardDate(period)
			r.out.Credentials = append(r.out.Credentials, models.AcademicCredential{
				ID:         models.NewID("credential", student.ID),
				StudentID:  student.ID,
				ProgramID:  program.ID,
				DegreeCode: program.DegreeCode,
				AwardedOn:  award,
			})
			student.Status = models.StudentStatusGraduated
			if !award.After(r.now) {
				return
			}
			awardBy = &award
		}
	}
}

// register greedily fills target credits from the shuffled sections of the
// student's level and returns indexes into out.Registrations.
func (r *populationRun) register(student models.Student, period models.AcademicPeriod, target int) []int {
	candidates := append([]int(nil), r.byLevel[sectionKey{periodID: period.ID, level: student.AcademicLevel}]...)
	random.Shuffle(r.rng, candidates)

	var (
		credits int
		created []int
		courses = make(map[string]struct{})
	)
	for _, idx := range candidates {
		if credits >= target {
			break
		}
		sec := &r.ref.Sections[idx]
		if sec.Available <= 0 {
			continue
		}
		if _, taken := courses[sec.CourseID]; taken {
			continue
		}
		if credits+sec.Credits > target+creditOvershoot {
			continue
		}

		registeredOn := period.RegistrationStartOn.AddDate(0, 0, r.rng.Int(0, registrationLeadDays))
		reg := models.SectionRegistration{
			ID:             models.NewID("registration", student.ID, sec.ID),
			StudentID:      student.ID,
			SectionID:      sec.ID,
			PeriodID:       period.ID,
			CourseID:       sec.CourseID,
			StatusCode:     models.RegistrationStatusRegistered,
			Credits:        sec.Credits,
			AttendanceRate: risk.Derate(student, r.rng.Float(baseAttendanceMin, baseAttendanceMax)),
			RegisteredOn:   registeredOn,
		}
		sec.Enroll()
		r.out.Registrations = append(r.out.Registrations, reg)
		created = append(created, len(r.out.Registrations)-1)
		courses[sec.CourseID] = struct{}{}
		credits += sec.Credits
	}
	return created
}

func (r *populationRun) riskRow(student models.Student, period models.AcademicPeriod, regs []int, gpa *float64) models.StudentRisk {
	var sum float64
	for _, idx := range regs {
		sum += r.out.Registrations[idx].AttendanceRate
	}
	computed := period.EndOn
	if r.now.Before(computed) {
		computed = truncateDay(r.now)
	}
	row := risk.Score(student, sum/float64(len(regs)), gpa).Row(student.ID, period.ID)
	row.ComputedOn = computed
	return row
}

// awardDate is the end of the first Spring ending on or after the crossing
// term, or the crossing term's own end when no such Spring exists.
func (r *populationRun) awardDate(crossing models.AcademicPeriod) time.Time {
	for _, p := range r.ref.Periods {
		if p.TermType == models.TermTypeSpring && !p.EndOn.Before(crossing.EndOn) {
			return p.EndOn
		}
	}
	return crossing.EndOn
}

// creditTarget is the credit load a student aims for in a term.
func creditTarget(rng *random.Generator, student models.Student, willGraduate bool, term models.TermType) int {
	var target int
	switch {
	case student.AcademicLevel == models.LevelGraduate && student.FullTime:
		target = 9
	case student.AcademicLevel == models.LevelGraduate:
		target = 6
	case student.FullTime && willGraduate:
		target = rng.Int(15, 16)
	case student.FullTime:
		target = rng.Int(12, 16)
	default:
		target = rng.Int(6, 9)
	}
	if term == models.TermTypeSummer {
		target /= 2
		if target < 3 {
			target = 3
		}
	}
	return target
}

// minimumCredits is the load below which a student is considered under-enrolled.
func minimumCredits(student models.Student) int {
	switch {
	case student.AcademicLevel == models.LevelGraduate && student.FullTime:
		return 9
	case student.AcademicLevel == models.LevelGraduate:
		return 6
	case student.FullTime:
		return 12
	default:
		return 6
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
