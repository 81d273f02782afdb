package models

import "time"

// SimulationStateID is the primary key of the singleton clock row.
const SimulationStateID = "singleton"

// SimulationState is the persisted simulated clock.
type SimulationState struct {
	ID             string     `db:"id" json:"id"`
	CurrentSimDate time.Time  `db:"current_sim_date" json:"current_sim_date"`
	LastTickDate   *time.Time `db:"last_tick_date" json:"last_tick_date,omitempty"`
}

// Dataset is the complete output of a seed run, written as one unit.
type Dataset struct {
	Periods       []AcademicPeriod
	Programs      []AcademicProgram
	Courses       []Course
	Sections      []Section
	Persons       []Person
	Students      []Student
	Registrations []SectionRegistration
	Transcripts   []StudentTranscriptGrade
	Credentials   []AcademicCredential
	Risks         []StudentRisk
}

// Summary counts the entities of the dataset.
func (d *Dataset) Summary() SeedSummary {
	return SeedSummary{
		Periods:       len(d.Periods),
		Programs:      len(d.Programs),
		Courses:       len(d.Courses),
		Sections:      len(d.Sections),
		Students:      len(d.Students),
		Registrations: len(d.Registrations),
		Transcripts:   len(d.Transcripts),
		Credentials:   len(d.Credentials),
		Risks:         len(d.Risks),
	}
}

// SeedSummary reports how many entities a seed run produced.
type SeedSummary struct {
	YearStart     int `json:"year_start"`
	YearEnd       int `json:"year_end"`
	Periods       int `json:"periods"`
	Programs      int `json:"programs"`
	Courses       int `json:"courses"`
	Sections      int `json:"sections"`
	Students      int `json:"students"`
	Registrations int `json:"registrations"`
	Transcripts   int `json:"transcripts"`
	Credentials   int `json:"credentials"`
	Risks         int `json:"risks"`
}

// TickResult is returned by AdvanceWeek.
type TickResult struct {
	Success            bool      `json:"success"`
	NewDate            time.Time `json:"new_date"`
	PeriodsProcessed   int       `json:"periods_processed"`
	PeriodsClosed      int       `json:"periods_closed"`
	Dropped            int       `json:"dropped"`
	Added              int       `json:"added"`
	MidtermsGraded     int       `json:"midterms_graded"`
	FinalsGraded       int       `json:"finals_graded"`
	RisksUpserted      int       `json:"risks_upserted"`
	TranscriptsCreated int       `json:"transcripts_created"`
}
