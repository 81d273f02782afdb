package models

import "time"

// RegistrationStatus is the registration status code.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "REG"
	RegistrationStatusDropped    RegistrationStatus = "DROP"
)

// SectionRegistration links a student to a section within a period. Rows are never deleted.
type SectionRegistration struct {
	ID             string             `db:"id" json:"id"`
	StudentID      string             `db:"student_id" json:"student_id"`
	SectionID      string             `db:"section_id" json:"section_id"`
	PeriodID       string             `db:"period_id" json:"period_id"`
	CourseID       string             `db:"course_id" json:"course_id"`
	StatusCode     RegistrationStatus `db:"status_code" json:"status_code"`
	Credits        int                `db:"credits" json:"credits"`
	AttendanceRate float64            `db:"attendance_rate" json:"attendance_rate"`
	MidtermGrade   *string            `db:"midterm_grade" json:"midterm_grade,omitempty"`
	FinalGrade     *string            `db:"final_grade" json:"final_grade,omitempty"`
	RegisteredOn   time.Time          `db:"registered_on" json:"registered_on"`
	DroppedOn      *time.Time         `db:"dropped_on" json:"dropped_on,omitempty"`
}

// IsRegistered reports whether the registration still holds a seat.
func (r SectionRegistration) IsRegistered() bool {
	return r.StatusCode == RegistrationStatusRegistered
}

// GradeStatusFinal marks a transcript grade as finalized.
const GradeStatusFinal = "final"

// StudentTranscriptGrade is the single finalized grade of a registration.
type StudentTranscriptGrade struct {
	ID               string  `db:"id" json:"id"`
	StudentID        string  `db:"student_id" json:"student_id"`
	RegistrationID   string  `db:"registration_id" json:"registration_id"`
	PeriodID         string  `db:"period_id" json:"period_id"`
	CourseID         string  `db:"course_id" json:"course_id"`
	GradeValue       string  `db:"grade_value" json:"grade_value"`
	GradePoints      float64 `db:"grade_points" json:"grade_points"`
	CreditsAttempted int     `db:"credits_attempted" json:"credits_attempted"`
	CreditsEarned    int     `db:"credits_earned" json:"credits_earned"`
	Status           string  `db:"status" json:"status"`
}

// AcademicCredential is the immutable graduation award of a student.
type AcademicCredential struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ProgramID  string    `db:"program_id" json:"program_id"`
	DegreeCode string    `db:"degree_code" json:"degree_code"`
	AwardedOn  time.Time `db:"awarded_on" json:"awarded_on"`
}
