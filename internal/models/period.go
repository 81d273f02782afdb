package models

import "time"

// TermType identifies the slot of an academic period within a year.
type TermType string

// PeriodStatus is the canonical state of a period. Closed is terminal.
type PeriodStatus string

const (
	TermTypeFall   TermType = "FALL"
	TermTypeSpring TermType = "SPRING"
	TermTypeSummer TermType = "SUMMER"

	PeriodStatusFuture PeriodStatus = "future"
	PeriodStatusActive PeriodStatus = "active"
	PeriodStatusClosed PeriodStatus = "closed"
)

// AcademicPeriod models one term with its registration and census calendar.
type AcademicPeriod struct {
	ID                  string       `db:"id" json:"id"`
	Code                string       `db:"code" json:"code"`
	Name                string       `db:"name" json:"name"`
	TermType            TermType     `db:"term_type" json:"term_type"`
	AcademicYear        int          `db:"academic_year" json:"academic_year"`
	StartOn             time.Time    `db:"start_on" json:"start_on"`
	EndOn               time.Time    `db:"end_on" json:"end_on"`
	CensusOn            time.Time    `db:"census_on" json:"census_on"`
	RegistrationStartOn time.Time    `db:"registration_start_on" json:"registration_start_on"`
	RegistrationEndOn   time.Time    `db:"registration_end_on" json:"registration_end_on"`
	Status              PeriodStatus `db:"status" json:"status"`
}

// Overlaps reports whether the period window intersects [from, to].
func (p AcademicPeriod) Overlaps(from, to time.Time) bool {
	return !p.StartOn.After(to) && !p.EndOn.Before(from)
}

// StatusAt labels the period relative to the given instant.
func (p AcademicPeriod) StatusAt(now time.Time) PeriodStatus {
	switch {
	case now.Before(p.StartOn):
		return PeriodStatusFuture
	case now.After(p.EndOn):
		return PeriodStatusClosed
	default:
		return PeriodStatusActive
	}
}

// IsClosed reports whether the period reached its terminal state.
func (p AcademicPeriod) IsClosed() bool {
	return p.Status == PeriodStatusClosed
}
