package models

// StudentType distinguishes undergraduate from graduate students.
type StudentType string

// StudentStatus tracks the lifecycle of a student. Inactive and graduated are terminal.
type StudentStatus string

const (
	StudentTypeUndergraduate StudentType = "undergraduate"
	StudentTypeGraduate      StudentType = "graduate"

	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusGraduated StudentStatus = "graduated"
)

// Academic levels shared by students, programs and courses.
const (
	LevelUndergraduate = "UG"
	LevelGraduate      = "GR"
)

// Residency classifications.
const (
	ResidencyInState       = "in_state"
	ResidencyOutOfState    = "out_of_state"
	ResidencyInternational = "international"
)

// Thresholds above which work and commute count as elevated risk factors.
const (
	ElevatedWorkHoursThreshold = 20
	ElevatedCommuteThreshold   = 45
)

// Student is the enrolled learner record; risk attributes are fixed at creation.
type Student struct {
	ID                    string        `db:"id" json:"id"`
	PersonID              string        `db:"person_id" json:"person_id"`
	ProgramID             string        `db:"program_id" json:"program_id"`
	EntryPeriodID         string        `db:"entry_period_id" json:"entry_period_id"`
	Type                  StudentType   `db:"type" json:"type"`
	Status                StudentStatus `db:"status" json:"status"`
	AcademicLevel         string        `db:"academic_level" json:"academic_level"`
	Residency             string        `db:"residency" json:"residency"`
	FullTime              bool          `db:"full_time" json:"full_time"`
	Traditional           bool          `db:"traditional" json:"traditional"`
	IsFirstGen            bool          `db:"is_first_gen" json:"is_first_gen"`
	IsPellEligible        bool          `db:"is_pell_eligible" json:"is_pell_eligible"`
	IsInState             bool          `db:"is_in_state" json:"is_in_state"`
	WorkHoursPerWeek      int           `db:"work_hours_per_week" json:"work_hours_per_week"`
	CommuteMinutes        int           `db:"commute_minutes" json:"commute_minutes"`
	HasHousingInstability bool          `db:"has_housing_instability" json:"has_housing_instability"`
}

// ElevatedWorkHours reports whether the student works enough hours to count as a risk factor.
func (s Student) ElevatedWorkHours() bool {
	return s.WorkHoursPerWeek >= ElevatedWorkHoursThreshold
}

// ElevatedCommute reports whether the commute is long enough to count as a risk factor.
func (s Student) ElevatedCommute() bool {
	return s.CommuteMinutes >= ElevatedCommuteThreshold
}

// IsActive reports whether the student is still in the active population.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}
