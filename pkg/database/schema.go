package database

// schema creates the simulator tables. The unique keys back the
// one-transcript-per-registration and one-risk-per-(student, period) rules.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS academic_periods (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    term_type TEXT NOT NULL,
    academic_year INT NOT NULL,
    start_on DATE NOT NULL,
    end_on DATE NOT NULL,
    census_on DATE NOT NULL,
    registration_start_on DATE NOT NULL,
    registration_end_on DATE NOT NULL,
    status TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS academic_programs (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    level TEXT NOT NULL,
    degree_code TEXT NOT NULL,
    credits_required INT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL,
    number INT NOT NULL,
    title TEXT NOT NULL,
    level INT NOT NULL,
    credits_min INT NOT NULL,
    credits_max INT NOT NULL,
    UNIQUE (subject, number)
)`,
	`CREATE TABLE IF NOT EXISTS sections (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL REFERENCES courses(id),
    period_id TEXT NOT NULL REFERENCES academic_periods(id),
    section_number TEXT NOT NULL,
    level TEXT NOT NULL,
    credits INT NOT NULL,
    capacity INT NOT NULL,
    enrolled INT NOT NULL DEFAULT 0,
    available INT NOT NULL,
    meeting_pattern TEXT NOT NULL,
    room TEXT NOT NULL,
    CHECK (enrolled + available = capacity)
)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_period ON sections(period_id)`,
	`CREATE TABLE IF NOT EXISTS persons (
    id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    birth_date DATE NOT NULL,
    gender TEXT NOT NULL,
    citizenship TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL UNIQUE REFERENCES persons(id),
    program_id TEXT NOT NULL REFERENCES academic_programs(id),
    entry_period_id TEXT NOT NULL REFERENCES academic_periods(id),
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    academic_level TEXT NOT NULL,
    residency TEXT NOT NULL,
    full_time BOOLEAN NOT NULL,
    traditional BOOLEAN NOT NULL,
    is_first_gen BOOLEAN NOT NULL,
    is_pell_eligible BOOLEAN NOT NULL,
    is_in_state BOOLEAN NOT NULL,
    work_hours_per_week INT NOT NULL,
    commute_minutes INT NOT NULL,
    has_housing_instability BOOLEAN NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS section_registrations (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    section_id TEXT NOT NULL REFERENCES sections(id),
    period_id TEXT NOT NULL REFERENCES academic_periods(id),
    course_id TEXT NOT NULL REFERENCES courses(id),
    status_code TEXT NOT NULL,
    credits INT NOT NULL,
    attendance_rate DOUBLE PRECISION NOT NULL CHECK (attendance_rate BETWEEN 0 AND 1),
    midterm_grade TEXT,
    final_grade TEXT,
    registered_on DATE NOT NULL,
    dropped_on DATE
)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_period ON section_registrations(period_id)`,
	`CREATE TABLE IF NOT EXISTS student_transcript_grades (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    registration_id TEXT NOT NULL UNIQUE REFERENCES section_registrations(id),
    period_id TEXT NOT NULL REFERENCES academic_periods(id),
    course_id TEXT NOT NULL REFERENCES courses(id),
    grade_value TEXT NOT NULL,
    grade_points DOUBLE PRECISION NOT NULL,
    credits_attempted INT NOT NULL,
    credits_earned INT NOT NULL,
    status TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_student ON student_transcript_grades(student_id)`,
	`CREATE TABLE IF NOT EXISTS academic_credentials (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL UNIQUE REFERENCES students(id),
    program_id TEXT NOT NULL REFERENCES academic_programs(id),
    degree_code TEXT NOT NULL,
    awarded_on DATE NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS student_risks (
    student_id TEXT NOT NULL REFERENCES students(id),
    period_id TEXT NOT NULL REFERENCES academic_periods(id),
    attendance_risk_score DOUBLE PRECISION NOT NULL CHECK (attendance_risk_score BETWEEN 0 AND 1),
    academic_support_risk_score DOUBLE PRECISION NOT NULL CHECK (academic_support_risk_score BETWEEN 0 AND 1),
    overall_risk_bucket TEXT NOT NULL,
    computed_on DATE NOT NULL,
    PRIMARY KEY (student_id, period_id)
)`,
	`CREATE TABLE IF NOT EXISTS simulation_state (
    id TEXT PRIMARY KEY,
    current_sim_date DATE NOT NULL,
    last_tick_date TIMESTAMPTZ
)`,
}
