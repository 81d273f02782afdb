package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-sim/internal/models"
)

const insertChunkSize = 500

const (
	periodColumns       = `id, code, name, term_type, academic_year, start_on, end_on, census_on, registration_start_on, registration_end_on, status`
	programColumns      = `id, code, name, level, degree_code, credits_required`
	courseColumns       = `id, subject, number, title, level, credits_min, credits_max`
	sectionColumns      = `id, course_id, period_id, section_number, level, credits, capacity, enrolled, available, meeting_pattern, room`
	personColumns       = `id, first_name, last_name, birth_date, gender, citizenship`
	studentColumns      = `id, person_id, program_id, entry_period_id, type, status, academic_level, residency, full_time, traditional, is_first_gen, is_pell_eligible, is_in_state, work_hours_per_week, commute_minutes, has_housing_instability`
	registrationColumns = `id, student_id, section_id, period_id, course_id, status_code, credits, attendance_rate, midterm_grade, final_grade, registered_on, dropped_on`
	transcriptColumns   = `id, student_id, registration_id, period_id, course_id, grade_value, grade_points, credits_attempted, credits_earned, status`
	credentialColumns   = `id, student_id, program_id, degree_code, awarded_on`
	riskColumns         = `student_id, period_id, attendance_risk_score, academic_support_risk_score, overall_risk_bucket, computed_on`
)

// PostgresStore persists the simulator dataset with sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs the store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) withTx(ctx context.Context, name string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}
	return nil
}

func namedColumns(columns string) string {
	parts := strings.Split(columns, ",")
	for i, col := range parts {
		parts[i] = ":" + strings.TrimSpace(col)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func insertQuery(table, columns string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, namedColumns(columns))
}

func bulkInsert[T any](ctx context.Context, tx *sqlx.Tx, table, columns string, rows []T) error {
	query := insertQuery(table, columns)
	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// ReplaceAll implements Store.
func (r *PostgresStore) ReplaceAll(ctx context.Context, data *models.Dataset) error {
	if data == nil {
		return fmt.Errorf("replace dataset: nil dataset")
	}
	return r.withTx(ctx, "replace dataset", func(tx *sqlx.Tx) error {
		const truncate = `TRUNCATE simulation_state, student_risks, academic_credentials, student_transcript_grades,
        section_registrations, sections, students, persons, courses, academic_programs, academic_periods`
		if _, err := tx.ExecContext(ctx, truncate); err != nil {
			return fmt.Errorf("truncate simulator tables: %w", err)
		}
		if err := bulkInsert(ctx, tx, "academic_periods", periodColumns, data.Periods); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "academic_programs", programColumns, data.Programs); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "courses", courseColumns, data.Courses); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "sections", sectionColumns, data.Sections); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "persons", personColumns, data.Persons); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "students", studentColumns, data.Students); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "section_registrations", registrationColumns, data.Registrations); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "student_transcript_grades", transcriptColumns, data.Transcripts); err != nil {
			return err
		}
		if err := bulkInsert(ctx, tx, "academic_credentials", credentialColumns, data.Credentials); err != nil {
			return err
		}
		return bulkInsert(ctx, tx, "student_risks", riskColumns, data.Risks)
	})
}

// Snapshot implements Store.
func (r *PostgresStore) Snapshot(ctx context.Context) (*models.Dataset, error) {
	data := &models.Dataset{}
	loads := []struct {
		dest  interface{}
		query string
	}{
		{&data.Periods, "SELECT " + periodColumns + " FROM academic_periods ORDER BY start_on, id"},
		{&data.Programs, "SELECT " + programColumns + " FROM academic_programs ORDER BY id"},
		{&data.Courses, "SELECT " + courseColumns + " FROM courses ORDER BY id"},
		{&data.Sections, "SELECT " + sectionColumns + " FROM sections ORDER BY id"},
		{&data.Persons, "SELECT " + personColumns + " FROM persons ORDER BY id"},
		{&data.Students, "SELECT " + studentColumns + " FROM students ORDER BY id"},
		{&data.Registrations, "SELECT " + registrationColumns + " FROM section_registrations ORDER BY id"},
		{&data.Transcripts, "SELECT " + transcriptColumns + " FROM student_transcript_grades ORDER BY id"},
		{&data.Credentials, "SELECT " + credentialColumns + " FROM academic_credentials ORDER BY id"},
		{&data.Risks, "SELECT " + riskColumns + " FROM student_risks ORDER BY student_id, period_id"},
	}
	for _, l := range loads {
		if err := r.db.SelectContext(ctx, l.dest, l.query); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}
	return data, nil
}

// GetSimulationState implements Store.
func (r *PostgresStore) GetSimulationState(ctx context.Context) (*models.SimulationState, error) {
	const query = `SELECT id, current_sim_date, last_tick_date FROM simulation_state WHERE id = $1`
	var state models.SimulationState
	if err := r.db.GetContext(ctx, &state, query, models.SimulationStateID); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveSimulationState implements Store.
func (r *PostgresStore) SaveSimulationState(ctx context.Context, state models.SimulationState) error {
	state.ID = models.SimulationStateID
	const query = `INSERT INTO simulation_state (id, current_sim_date, last_tick_date)
        VALUES (:id, :current_sim_date, :last_tick_date)
        ON CONFLICT (id) DO UPDATE SET current_sim_date = EXCLUDED.current_sim_date, last_tick_date = EXCLUDED.last_tick_date`
	if _, err := r.db.NamedExecContext(ctx, query, state); err != nil {
		return fmt.Errorf("save simulation state: %w", err)
	}
	return nil
}

// ListPeriods implements Store.
func (r *PostgresStore) ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error) {
	var periods []models.AcademicPeriod
	if err := r.db.SelectContext(ctx, &periods, "SELECT "+periodColumns+" FROM academic_periods ORDER BY start_on"); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindPeriodByCode implements Store.
func (r *PostgresStore) FindPeriodByCode(ctx context.Context, code string) (*models.AcademicPeriod, error) {
	var period models.AcademicPeriod
	if err := r.db.GetContext(ctx, &period, "SELECT "+periodColumns+" FROM academic_periods WHERE code = $1", code); err != nil {
		return nil, err
	}
	return &period, nil
}

// ListOpenPeriodsOverlapping implements Store.
func (r *PostgresStore) ListOpenPeriodsOverlapping(ctx context.Context, from, to time.Time) ([]models.AcademicPeriod, error) {
	query := "SELECT " + periodColumns + " FROM academic_periods WHERE status <> $1 AND start_on <= $2 AND end_on >= $3 ORDER BY start_on"
	var periods []models.AcademicPeriod
	if err := r.db.SelectContext(ctx, &periods, query, models.PeriodStatusClosed, to, from); err != nil {
		return nil, fmt.Errorf("list overlapping periods: %w", err)
	}
	return periods, nil
}

// UpdatePeriodStatus implements Store.
func (r *PostgresStore) UpdatePeriodStatus(ctx context.Context, id string, status models.PeriodStatus) error {
	const query = `UPDATE academic_periods SET status = $2 WHERE id = $1 AND status <> $3`
	res, err := r.db.ExecContext(ctx, query, id, status, models.PeriodStatusClosed)
	if err != nil {
		return fmt.Errorf("update period status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSectionsByPeriod implements Store.
func (r *PostgresStore) ListSectionsByPeriod(ctx context.Context, periodID string) ([]models.Section, error) {
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, "SELECT "+sectionColumns+" FROM sections WHERE period_id = $1 ORDER BY id", periodID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListRegistrationsByPeriod implements Store.
func (r *PostgresStore) ListRegistrationsByPeriod(ctx context.Context, periodID string) ([]models.SectionRegistration, error) {
	var regs []models.SectionRegistration
	if err := r.db.SelectContext(ctx, &regs, "SELECT "+registrationColumns+" FROM section_registrations WHERE period_id = $1 ORDER BY id", periodID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListStudentsByIDs implements Store.
func (r *PostgresStore) ListStudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+studentColumns+" FROM students WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("build student query: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListTranscriptGradesByStudents implements Store.
func (r *PostgresStore) ListTranscriptGradesByStudents(ctx context.Context, studentIDs []string) ([]models.StudentTranscriptGrade, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+transcriptColumns+" FROM student_transcript_grades WHERE student_id IN (?) ORDER BY id", studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build transcript query: %w", err)
	}
	var grades []models.StudentTranscriptGrade
	if err := r.db.SelectContext(ctx, &grades, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list transcript grades: %w", err)
	}
	return grades, nil
}

// CreateRegistration implements Store.
func (r *PostgresStore) CreateRegistration(ctx context.Context, reg models.SectionRegistration) error {
	return r.withTx(ctx, "create registration", func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertQuery("section_registrations", registrationColumns), reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		if !reg.IsRegistered() {
			return nil
		}
		const bump = `UPDATE sections SET enrolled = enrolled + 1, available = capacity - (enrolled + 1) WHERE id = $1`
		if _, err := tx.ExecContext(ctx, bump, reg.SectionID); err != nil {
			return fmt.Errorf("book section seat: %w", err)
		}
		return nil
	})
}

// DropRegistration implements Store.
func (r *PostgresStore) DropRegistration(ctx context.Context, id string, droppedOn time.Time) error {
	return r.withTx(ctx, "drop registration", func(tx *sqlx.Tx) error {
		const drop = `UPDATE section_registrations SET status_code = $2, dropped_on = $3
        WHERE id = $1 AND status_code = $4 RETURNING section_id`
		var sectionID string
		err := tx.GetContext(ctx, &sectionID, drop, id, models.RegistrationStatusDropped, droppedOn, models.RegistrationStatusRegistered)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("drop registration: %w", err)
		}
		const release = `UPDATE sections SET enrolled = GREATEST(enrolled - 1, 0), available = capacity - GREATEST(enrolled - 1, 0) WHERE id = $1`
		if _, err := tx.ExecContext(ctx, release, sectionID); err != nil {
			return fmt.Errorf("release section seat: %w", err)
		}
		return nil
	})
}

func (r *PostgresStore) updateRegistrations(ctx context.Context, name, query string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	return r.withTx(ctx, name, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", name, err)
		}
		defer stmt.Close()
		for _, id := range sortedKeys(values) {
			if _, err := stmt.ExecContext(ctx, id, values[id]); err != nil {
				return fmt.Errorf("%s %s: %w", name, id, err)
			}
		}
		return nil
	})
}

// UpdateAttendance implements Store.
func (r *PostgresStore) UpdateAttendance(ctx context.Context, rates map[string]float64) error {
	values := make(map[string]interface{}, len(rates))
	for id, v := range rates {
		values[id] = v
	}
	return r.updateRegistrations(ctx, "update attendance", `UPDATE section_registrations SET attendance_rate = $2 WHERE id = $1`, values)
}

// SetMidtermGrades implements Store.
func (r *PostgresStore) SetMidtermGrades(ctx context.Context, grades map[string]string) error {
	values := make(map[string]interface{}, len(grades))
	for id, v := range grades {
		values[id] = v
	}
	return r.updateRegistrations(ctx, "set midterm grades", `UPDATE section_registrations SET midterm_grade = $2 WHERE id = $1`, values)
}

// SetFinalGrades implements Store.
func (r *PostgresStore) SetFinalGrades(ctx context.Context, grades map[string]string) error {
	values := make(map[string]interface{}, len(grades))
	for id, v := range grades {
		values[id] = v
	}
	return r.updateRegistrations(ctx, "set final grades", `UPDATE section_registrations SET final_grade = $2 WHERE id = $1`, values)
}

// UpsertRisk implements Store.
func (r *PostgresStore) UpsertRisk(ctx context.Context, risk models.StudentRisk) error {
	query := insertQuery("student_risks", riskColumns) + ` ON CONFLICT (student_id, period_id) DO UPDATE SET
        attendance_risk_score = EXCLUDED.attendance_risk_score,
        academic_support_risk_score = EXCLUDED.academic_support_risk_score,
        overall_risk_bucket = EXCLUDED.overall_risk_bucket,
        computed_on = EXCLUDED.computed_on`
	if _, err := r.db.NamedExecContext(ctx, query, risk); err != nil {
		return fmt.Errorf("upsert student risk: %w", err)
	}
	return nil
}

// ListRisksByPeriod implements Store.
func (r *PostgresStore) ListRisksByPeriod(ctx context.Context, periodID string) ([]models.StudentRisk, error) {
	var risks []models.StudentRisk
	if err := r.db.SelectContext(ctx, &risks, "SELECT "+riskColumns+" FROM student_risks WHERE period_id = $1 ORDER BY student_id", periodID); err != nil {
		return nil, fmt.Errorf("list student risks: %w", err)
	}
	return risks, nil
}

// ClosePeriod implements Store.
func (r *PostgresStore) ClosePeriod(ctx context.Context, periodID string, finals map[string]string, transcripts []models.StudentTranscriptGrade) error {
	return r.withTx(ctx, "close period", func(tx *sqlx.Tx) error {
		for _, id := range sortedKeys(finals) {
			if _, err := tx.ExecContext(ctx, `UPDATE section_registrations SET final_grade = $2 WHERE id = $1`, id, finals[id]); err != nil {
				return fmt.Errorf("finalize registration %s: %w", id, err)
			}
		}
		insert := insertQuery("student_transcript_grades", transcriptColumns) + " ON CONFLICT (registration_id) DO NOTHING"
		for _, g := range transcripts {
			if _, err := tx.NamedExecContext(ctx, insert, g); err != nil {
				return fmt.Errorf("create transcript grade: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE academic_periods SET status = $2 WHERE id = $1`, periodID, models.PeriodStatusClosed); err != nil {
			return fmt.Errorf("close period: %w", err)
		}
		return nil
	})
}
