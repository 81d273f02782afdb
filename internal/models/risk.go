package models

import "time"

// RiskBucket summarises combined attendance and academic-support risk.
type RiskBucket string

const (
	RiskBucketLow    RiskBucket = "LOW"
	RiskBucketMedium RiskBucket = "MEDIUM"
	RiskBucketHigh   RiskBucket = "HIGH"
)

// StudentRisk is keyed by (StudentID, PeriodID) and upserted on every recomputation.
type StudentRisk struct {
	StudentID                string     `db:"student_id" json:"student_id"`
	PeriodID                 string     `db:"period_id" json:"period_id"`
	AttendanceRiskScore      float64    `db:"attendance_risk_score" json:"attendance_risk_score"`
	AcademicSupportRiskScore float64    `db:"academic_support_risk_score" json:"academic_support_risk_score"`
	OverallRiskBucket        RiskBucket `db:"overall_risk_bucket" json:"overall_risk_bucket"`
	ComputedOn               time.Time  `db:"computed_on" json:"computed_on"`
}

// RiskKey is the composite natural key of a StudentRisk row.
type RiskKey struct {
	StudentID string
	PeriodID  string
}

// Key returns the composite key of the row.
func (r StudentRisk) Key() RiskKey {
	return RiskKey{StudentID: r.StudentID, PeriodID: r.PeriodID}
}
