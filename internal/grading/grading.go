// Package grading maps target GPAs to letter grades and aggregates grade points.
package grading

import (
	"math"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
)

// Withdrawn is the final grade recorded for dropped registrations.
const Withdrawn = "W"

const (
	// BaselineGPA seeds grade targets for students without completed coursework.
	BaselineGPA = 3.0

	letterVariance     = 0.3
	targetVariance     = 0.2
	attendancePivot    = 0.85
	attendanceWeight   = 0.5
	// midtermDeltaWeight scales the pull of a midterm on tick-time finals.
	midtermDeltaWeight = 0.5
)

type bucket struct {
	min     float64
	choices [2]string
}

// buckets are ordered by descending threshold; each offers its letter and the next lower one.
var buckets = []bucket{
	{3.85, [2]string{"A", "A-"}},
	{3.5, [2]string{"A-", "B+"}},
	{3.15, [2]string{"B+", "B"}},
	{2.85, [2]string{"B", "B-"}},
	{2.5, [2]string{"B-", "C+"}},
	{2.15, [2]string{"C+", "C"}},
	{1.85, [2]string{"C", "C-"}},
	{1.5, [2]string{"C-", "D+"}},
	{1.15, [2]string{"D+", "D"}},
	{0.85, [2]string{"D", "F"}},
	{math.Inf(-1), [2]string{"F", "F"}},
}

var points = map[string]float64{
	"A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0,
	"F": 0, Withdrawn: 0,
}

// ClampGPA bounds v to [0,4].
func ClampGPA(v float64) float64 {
	return math.Max(0, math.Min(4, v))
}

// Letter turns a target GPA into a letter grade with ±0.3 variance and a
// uniform pick between the two letters of the matching bucket.
func Letter(src random.Source, target float64) string {
	gpa := ClampGPA(target + random.Float(src, -letterVariance, letterVariance))
	for _, b := range buckets {
		if gpa >= b.min {
			return random.Choice(src, b.choices[:])
		}
	}
	return "F"
}

// Points returns the grade points of a letter. Unknown letters score zero.
func Points(letter string) float64 {
	return points[letter]
}

// CountsTowardGPA reports whether the letter carries attempted credits.
func CountsTowardGPA(letter string) bool {
	_, ok := points[letter]
	return ok && letter != Withdrawn
}

// Target is the GPA a student is expected to earn given their standing and attendance.
func Target(src random.Source, cumulativeGPA, attendance float64) float64 {
	adjusted := cumulativeGPA + (attendance-attendancePivot)*attendanceWeight
	return ClampGPA(adjusted + random.Float(src, -targetVariance, targetVariance))
}

// FinalTarget extends Target with the pull of a midterm grade when one exists.
func FinalTarget(src random.Source, cumulativeGPA, attendance float64, midterm *string) float64 {
	target := Target(src, cumulativeGPA, attendance)
	if midterm == nil {
		return target
	}
	return ClampGPA(target + (Points(*midterm)-cumulativeGPA)*midtermDeltaWeight)
}

// Tally is a running credit-weighted GPA.
type Tally struct {
	QualityPoints    float64
	CreditsAttempted int
	CreditsEarned    int
}

// Add records one finalized grade.
func (t *Tally) Add(letter string, credits int) {
	if !CountsTowardGPA(letter) {
		return
	}
	t.QualityPoints += Points(letter) * float64(credits)
	t.CreditsAttempted += credits
	if letter != "F" {
		t.CreditsEarned += credits
	}
}

// GPA returns the cumulative GPA or nil when nothing has been attempted.
func (t Tally) GPA() *float64 {
	if t.CreditsAttempted == 0 {
		return nil
	}
	gpa := ClampGPA(t.QualityPoints / float64(t.CreditsAttempted))
	return &gpa
}

// GPAOr returns the cumulative GPA or fallback when nothing has been attempted.
func (t Tally) GPAOr(fallback float64) float64 {
	if gpa := t.GPA(); gpa != nil {
		return *gpa
	}
	return fallback
}

// TranscriptGrade finalizes a registration into its transcript row.
func TranscriptGrade(reg models.SectionRegistration, letter string) models.StudentTranscriptGrade {
	attempted, earned := reg.Credits, reg.Credits
	if !CountsTowardGPA(letter) {
		attempted, earned = 0, 0
	} else if letter == "F" {
		earned = 0
	}
	return models.StudentTranscriptGrade{
		ID:               models.NewID("transcript", reg.ID),
		StudentID:        reg.StudentID,
		RegistrationID:   reg.ID,
		PeriodID:         reg.PeriodID,
		CourseID:         reg.CourseID,
		GradeValue:       letter,
		GradePoints:      Points(letter),
		CreditsAttempted: attempted,
		CreditsEarned:    earned,
		Status:           models.GradeStatusFinal,
	}
}

// TallyTranscripts folds transcript rows per student.
func TallyTranscripts(grades []models.StudentTranscriptGrade) map[string]*Tally {
	out := make(map[string]*Tally)
	for _, g := range grades {
		t, ok := out[g.StudentID]
		if !ok {
			t = &Tally{}
			out[g.StudentID] = t
		}
		if g.CreditsAttempted == 0 {
			continue
		}
		t.QualityPoints += g.GradePoints * float64(g.CreditsAttempted)
		t.CreditsAttempted += g.CreditsAttempted
		t.CreditsEarned += g.CreditsEarned
	}
	return out
}
