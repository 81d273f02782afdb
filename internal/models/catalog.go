package models

// AcademicProgram is a static catalog entry a student is admitted to.
type AcademicProgram struct {
	ID              string `db:"id" json:"id"`
	Code            string `db:"code" json:"code"`
	Name            string `db:"name" json:"name"`
	Level           string `db:"level" json:"level"`
	DegreeCode      string `db:"degree_code" json:"degree_code"`
	CreditsRequired int    `db:"credits_required" json:"credits_required"`
}

// Course is a static catalog entry offered through sections.
type Course struct {
	ID         string `db:"id" json:"id"`
	Subject    string `db:"subject" json:"subject"`
	Number     int    `db:"number" json:"number"`
	Title      string `db:"title" json:"title"`
	Level      int    `db:"level" json:"level"`
	CreditsMin int    `db:"credits_min" json:"credits_min"`
	CreditsMax int    `db:"credits_max" json:"credits_max"`
}

// AcademicLevel maps the course level band to a student level.
func (c Course) AcademicLevel() string {
	if c.Level >= 500 {
		return LevelGraduate
	}
	return LevelUndergraduate
}

// Section is one scheduled offering of a course within a period.
type Section struct {
	ID             string `db:"id" json:"id"`
	CourseID       string `db:"course_id" json:"course_id"`
	PeriodID       string `db:"period_id" json:"period_id"`
	SectionNumber  string `db:"section_number" json:"section_number"`
	Level          string `db:"level" json:"level"`
	Credits        int    `db:"credits" json:"credits"`
	Capacity       int    `db:"capacity" json:"capacity"`
	Enrolled       int    `db:"enrolled" json:"enrolled"`
	Available      int    `db:"available" json:"available"`
	MeetingPattern string `db:"meeting_pattern" json:"meeting_pattern"`
	Room           string `db:"room" json:"room"`
}

// Enroll books one seat keeping Enrolled + Available == Capacity.
func (s *Section) Enroll() {
	s.Enrolled++
	s.Available = s.Capacity - s.Enrolled
}

// Release frees one seat keeping Enrolled + Available == Capacity.
func (s *Section) Release() {
	if s.Enrolled > 0 {
		s.Enrolled--
	}
	s.Available = s.Capacity - s.Enrolled
}
