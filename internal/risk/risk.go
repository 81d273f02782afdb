// Package risk scores students for attendance and academic-support risk.
package risk

import (
	"math"

	"github.com/noah-isme/campus-sim/internal/models"
)

const (
	workHoursAttendancePenalty = 0.15
	commutePenalty             = 0.10
	housingPenalty             = 0.20

	academicBase             = 0.30
	gpaBelow20Penalty        = 0.40
	gpaBelow25Penalty        = 0.25
	gpaBelow30Penalty        = 0.10
	firstGenPenalty          = 0.15
	pellPenalty              = 0.10
	workHoursAcademicPenalty = 0.10

	highThreshold   = 0.6
	mediumThreshold = 0.3

	workAttendanceFactor    = 0.95
	commuteAttendanceFactor = 0.97
	housingAttendanceFactor = 0.92
)

// Result holds both scores and the derived bucket.
type Result struct {
	AttendanceRisk      float64
	AcademicSupportRisk float64
	Bucket              models.RiskBucket
}

// Score is pure: a nil gpa means the student has no completed coursework yet.
func Score(student models.Student, attendanceRate float64, gpa *float64) Result {
	attendance := 1 - attendanceRate
	if student.ElevatedWorkHours() {
		attendance += workHoursAttendancePenalty
	}
	if student.ElevatedCommute() {
		attendance += commutePenalty
	}
	if student.HasHousingInstability {
		attendance += housingPenalty
	}
	attendance = clamp01(attendance)

	academic := academicBase
	if gpa != nil {
		switch {
		case *gpa < 2.0:
			academic += gpaBelow20Penalty
		case *gpa < 2.5:
			academic += gpaBelow25Penalty
		case *gpa < 3.0:
			academic += gpaBelow30Penalty
		}
	}
	if student.IsFirstGen {
		academic += firstGenPenalty
	}
	if student.IsPellEligible {
		academic += pellPenalty
	}
	if student.ElevatedWorkHours() {
		academic += workHoursAcademicPenalty
	}
	academic = clamp01(academic)

	return Result{
		AttendanceRisk:      attendance,
		AcademicSupportRisk: academic,
		Bucket:              Bucket(attendance, academic),
	}
}

// Bucket classifies the mean of the two scores.
func Bucket(attendanceRisk, academicRisk float64) models.RiskBucket {
	avg := (attendanceRisk + academicRisk) / 2
	switch {
	case avg >= highThreshold:
		return models.RiskBucketHigh
	case avg >= mediumThreshold:
		return models.RiskBucketMedium
	default:
		return models.RiskBucketLow
	}
}

// Row builds the persisted risk row for a (student, period) pair.
func (r Result) Row(studentID, periodID string) models.StudentRisk {
	return models.StudentRisk{
		StudentID:                studentID,
		PeriodID:                 periodID,
		AttendanceRiskScore:      r.AttendanceRisk,
		AcademicSupportRiskScore: r.AcademicSupportRisk,
		OverallRiskBucket:        r.Bucket,
	}
}

// Derate applies the multiplicative attendance penalties of the student's
// risk attributes and clamps the result to [0,1].
func Derate(student models.Student, rate float64) float64 {
	if student.ElevatedWorkHours() {
		rate *= workAttendanceFactor
	}
	if student.ElevatedCommute() {
		rate *= commuteAttendanceFactor
	}
	if student.HasHousingInstability {
		rate *= housingAttendanceFactor
	}
	return clamp01(rate)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
