package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
)

type termTemplate struct {
	termType models.TermType
	suffix   string
	label    string
	month    time.Month
	day      int
	weeks    int
}

// Calendar order within a year.
var termTemplates = []termTemplate{
	{models.TermTypeSpring, "SP", "Spring", time.January, 15, 16},
	{models.TermTypeSummer, "SU", "Summer", time.June, 1, 10},
	{models.TermTypeFall, "FA", "Fall", time.August, 25, 16},
}

const (
	censusOffsetDays          = 14
	registrationOpensDays     = 90
	registrationClosesDays    = 7
	coursesPerStudent         = 4
	averageSectionCapacity    = 30
	undergraduateCreditsTotal = 120
	graduateCreditsTotal      = 36
)

type programTemplate struct {
	code   string
	name   string
	degree string
}

var undergraduatePrograms = []programTemplate{
	{"BIO-BS", "Biology", "BS"},
	{"CHEM-BS", "Chemistry", "BS"},
	{"CS-BS", "Computer Science", "BS"},
	{"MATH-BS", "Mathematics", "BS"},
	{"PHYS-BS", "Physics", "BS"},
	{"NURS-BS", "Nursing", "BS"},
	{"ENG-BA", "English", "BA"},
	{"HIST-BA", "History", "BA"},
	{"PSYC-BA", "Psychology", "BA"},
	{"ECON-BA", "Economics", "BA"},
	{"SOC-BA", "Sociology", "BA"},
	{"BUS-BA", "Business Administration", "BA"},
}

var graduatePrograms = []programTemplate{
	{"BIO-MS", "Biology", "MS"},
	{"CS-MS", "Computer Science", "MS"},
	{"DS-MS", "Data Science", "MS"},
	{"EDU-MA", "Education", "MA"},
	{"PSYC-MA", "Counseling Psychology", "MA"},
	{"BUS-MBA", "Business Administration", "MBA"},
}

type subjectTemplate struct {
	code string
	name string
	lab  bool
}

var subjects = []subjectTemplate{
	{"BIO", "Biology", true},
	{"CHEM", "Chemistry", true},
	{"PHYS", "Physics", true},
	{"CS", "Computer Science", true},
	{"MATH", "Mathematics", false},
	{"ENG", "English", false},
	{"HIST", "History", false},
	{"PSYC", "Psychology", false},
	{"ECON", "Economics", false},
	{"SOC", "Sociology", false},
	{"BUS", "Business", false},
	{"EDU", "Education", false},
}

var levelBands = []struct {
	level  int
	prefix string
}{
	{100, "Foundations of"},
	{200, "Intermediate"},
	{300, "Applied"},
	{400, "Advanced Topics in"},
	{500, "Graduate Seminar in"},
	{600, "Research Methods in"},
}

var meetingPatterns = []string{"MWF 08:00-08:50", "MWF 09:00-09:50", "MWF 11:00-11:50", "MW 13:00-14:15", "MW 15:00-16:15", "TR 09:30-10:45", "TR 11:00-12:15", "TR 14:00-15:15", "T 18:00-20:45", "R 18:00-20:45"}

var rooms = []string{"SCI 101", "SCI 214", "HUM 110", "HUM 305", "LIB 020", "BUS 120", "BUS 240", "ENG 150", "ART 011", "ONLINE"}

// ReferenceConfig parameterises catalog generation.
type ReferenceConfig struct {
	YearStart        int
	YearEnd          int
	ExpectedStudents int
	// Now labels period statuses. It is not the simulated clock.
	Now time.Time
}

// ReferenceData is the catalog a population is generated against.
type ReferenceData struct {
	Periods  []models.AcademicPeriod
	Programs []models.AcademicProgram
	Courses  []models.Course
	Sections []models.Section
}

// ReferenceGenerator builds periods, programs, courses and sections.
type ReferenceGenerator struct {
	logger *zap.Logger
}

// NewReferenceGenerator constructs the generator.
func NewReferenceGenerator(logger *zap.Logger) *ReferenceGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceGenerator{logger: logger}
}

// Generate consumes rng for section attributes only; periods, programs and
// courses are fixed tables.
func (g *ReferenceGenerator) Generate(rng *random.Generator, cfg ReferenceConfig) *ReferenceData {
	data := &ReferenceData{
		Periods:  buildPeriods(cfg.YearStart, cfg.YearEnd, cfg.Now),
		Programs: buildPrograms(),
		Courses:  buildCourses(),
	}
	data.Sections = buildSections(rng, data.Periods, data.Courses, cfg.ExpectedStudents)

	g.logger.Sugar().Infow("reference data generated",
		"periods", len(data.Periods),
		"programs", len(data.Programs),
		"courses", len(data.Courses),
		"sections", len(data.Sections),
	)
	return data
}

func buildPeriods(yearStart, yearEnd int, now time.Time) []models.AcademicPeriod {
	var periods []models.AcademicPeriod
	for year := yearStart; year <= yearEnd; year++ {
		for _, tpl := range termTemplates {
			start := time.Date(year, tpl.month, tpl.day, 0, 0, 0, 0, time.UTC)
			academicYear := year
			if tpl.termType != models.TermTypeFall {
				academicYear = year - 1
			}
			code := fmt.Sprintf("%d%s", year, tpl.suffix)
			period := models.AcademicPeriod{
				ID:                  models.NewID("period", code),
				Code:                code,
				Name:                fmt.Sprintf("%s %d", tpl.label, year),
				TermType:            tpl.termType,
				AcademicYear:        academicYear,
				StartOn:             start,
				EndOn:               start.AddDate(0, 0, tpl.weeks*7-1),
				CensusOn:            start.AddDate(0, 0, censusOffsetDays),
				RegistrationStartOn: start.AddDate(0, 0, -registrationOpensDays),
				RegistrationEndOn:   start.AddDate(0, 0, registrationClosesDays),
			}
			period.Status = period.StatusAt(now)
			periods = append(periods, period)
		}
	}
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].StartOn.Before(periods[j].StartOn) })
	return periods
}

func buildPrograms() []models.AcademicProgram {
	programs := make([]models.AcademicProgram, 0, len(undergraduatePrograms)+len(graduatePrograms))
	add := func(tpls []programTemplate, level string, credits int) {
		for _, tpl := range tpls {
			programs = append(programs, models.AcademicProgram{
				ID:              models.NewID("program", tpl.code),
				Code:            tpl.code,
				Name:            fmt.Sprintf("%s %s", tpl.degree, tpl.name),
				Level:           level,
				DegreeCode:      tpl.degree,
				CreditsRequired: credits,
			})
		}
	}
	add(undergraduatePrograms, models.LevelUndergraduate, undergraduateCreditsTotal)
	add(graduatePrograms, models.LevelGraduate, graduateCreditsTotal)
	return programs
}

func buildCourses() []models.Course {
	var courses []models.Course
	for _, subj := range subjects {
		creditsMax := 3
		if subj.lab {
			creditsMax = 4
		}
		for _, band := range levelBands {
			for i, suffix := range []string{"I", "II"} {
				number := band.level + 1 + i*10
				courses = append(courses, models.Course{
					ID:         models.NewID("course", subj.code, fmt.Sprint(number)),
					Subject:    subj.code,
					Number:     number,
					Title:      fmt.Sprintf("%s %s %s", band.prefix, subj.name, suffix),
					Level:      band.level,
					CreditsMin: 3,
					CreditsMax: creditsMax,
				})
			}
		}
	}
	return courses
}

func sectionsPerCourse(expectedStudents, courseCount int) int {
	if courseCount == 0 {
		return 0
	}
	n := math.Round(float64(expectedStudents*coursesPerStudent) / float64(courseCount*averageSectionCapacity))
	return int(math.Max(1, n))
}

func buildSections(rng *random.Generator, periods []models.AcademicPeriod, courses []models.Course, expectedStudents int) []models.Section {
	perCourse := sectionsPerCourse(expectedStudents, len(courses))
	var sections []models.Section
	for _, period := range periods {
		count := perCourse
		if period.TermType == models.TermTypeSummer {
			count = int(math.Max(1, math.Round(float64(perCourse)/2)))
		}
		for _, course := range courses {
			level := course.AcademicLevel()
			for n := 1; n <= count; n++ {
				capacity := rng.Int(25, 45)
				if level == models.LevelGraduate {
					capacity = rng.Int(12, 20)
				}
				number := fmt.Sprintf("%03d", n)
				sections = append(sections, models.Section{
					ID:             models.NewID("section", period.Code, course.Subject, fmt.Sprint(course.Number), number),
					CourseID:       course.ID,
					PeriodID:       period.ID,
					SectionNumber:  number,
					Level:          level,
					Credits:        rng.Int(course.CreditsMin, course.CreditsMax),
					Capacity:       capacity,
					Enrolled:       0,
					Available:      capacity,
					MeetingPattern: random.Choice(rng, meetingPatterns),
					Room:           random.Choice(rng, rooms),
				})
			}
		}
	}
	return sections
}
