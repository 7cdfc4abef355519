package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pickup/internal/apperr"
)

// Repository persists attendance logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const logColumns = `a.id, a.child_id, a.teacher_id, a.picker_id, a.action, a.timestamp, to_char(a.date, 'YYYY-MM-DD'), a.created_at`

const recordSelect = `
	SELECT ` + logColumns + `,
	       c.first_name, c.last_name, c.class_name,
	       t.name, p.name
	FROM attendance_logs a
	LEFT JOIN children c ON c.id = a.child_id
	LEFT JOIN teachers t ON t.id = a.teacher_id
	LEFT JOIN authorized_pickers p ON p.id = a.picker_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner, extra ...any) (Log, error) {
	var (
		l                            Log
		childID, teacherID, pickerID sql.NullInt64
	)
	dest := append([]any{&l.ID, &childID, &teacherID, &pickerID, &l.Action, &l.Timestamp, &l.Date, &l.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Log{}, err
	}
	l.ChildID = nullInt(childID)
	l.TeacherID = nullInt(teacherID)
	l.PickerID = nullInt(pickerID)
	return l, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// DailyLogs returns a child's logs for one date, oldest first.
func (r *Repository) DailyLogs(ctx context.Context, childID int64, date string) ([]Log, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM attendance_logs a
		WHERE a.child_id = $1 AND a.date = $2
		ORDER BY a.timestamp ASC
	`, childID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// PickerIDs returns the ids of a child's authorized pickers, at most three.
func (r *Repository) PickerIDs(ctx context.Context, childID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM authorized_pickers
		WHERE child_id = $1
		ORDER BY sort_order ASC
		LIMIT 3
	`, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertLog writes a new log and returns it as stored.
func (r *Repository) InsertLog(ctx context.Context, l Log) (Log, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_logs AS a (child_id, teacher_id, picker_id, action, timestamp, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+logColumns,
		l.ChildID, l.TeacherID, l.PickerID, l.Action, l.Timestamp, l.Date)
	out, err := scanLog(row)
	if err != nil {
		return Log{}, apperr.FromDB(err, "Duplicate attendance record", "Child, teacher or picker not found")
	}
	return out, nil
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Record{}
	for rows.Next() {
		var first, last, class, teacher, picker sql.NullString
		l, err := scanLog(rows, &first, &last, &class, &teacher, &picker)
		if err != nil {
			return nil, err
		}
		res = append(res, toRecord(l, first, last, class, teacher, picker))
	}
	return res, rows.Err()
}

func toRecord(l Log, first, last, class, teacher, picker sql.NullString) Record {
	name := strings.TrimSpace(strings.Join(nonEmpty(first.String, last.String), " "))
	className := strings.TrimSpace(class.String)
	return Record{
		Log:         l,
		ChildName:   orPlaceholder(name),
		ClassName:   orPlaceholder(className),
		ChildClass:  orPlaceholder(className),
		TeacherName: orPlaceholder(teacher.String),
		PickerName:  orPlaceholder(picker.String),
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// RecordsByDate returns the named records of one date, oldest first.
func (r *Repository) RecordsByDate(ctx context.Context, date string) ([]Record, error) {
	return r.queryRecords(ctx, recordSelect+`
		WHERE a.date = $1
		ORDER BY a.timestamp ASC`, date)
}

// AllRecords returns every named record, newest date first.
func (r *Repository) AllRecords(ctx context.Context) ([]Record, error) {
	return r.queryRecords(ctx, recordSelect+`
		ORDER BY a.date DESC, a.timestamp DESC`)
}

// Dates returns every date with at least one log, newest first.
func (r *Repository) Dates(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT to_char(date, 'YYYY-MM-DD') AS d
		FROM attendance_logs
		ORDER BY d DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DeleteByDate removes every log of one date and returns how many were removed.
func (r *Repository) DeleteByDate(ctx context.Context, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_logs WHERE date = $1`, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Departure loads the details a guardian notification needs.
func (r *Repository) Departure(ctx context.Context, logID int64) (Departure, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.timestamp, c.first_name, c.last_name, c.guardian_phone, p.name, t.name
		FROM attendance_logs a
		LEFT JOIN children c ON c.id = a.child_id
		LEFT JOIN authorized_pickers p ON p.id = a.picker_id
		LEFT JOIN teachers t ON t.id = a.teacher_id
		WHERE a.id = $1
	`, logID)
	var (
		d                                 Departure
		ts                                time.Time
		first, last, phone, picker, teach sql.NullString
	)
	if err := row.Scan(&d.LogID, &ts, &first, &last, &phone, &picker, &teach); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Departure{}, apperr.NotFound("Attendance record not found")
		}
		return Departure{}, err
	}
	d.Timestamp = ts
	d.ChildName = strings.TrimSpace(first.String + " " + last.String)
	d.GuardianPhone = phone.String
	d.PickerName = picker.String
	d.TeacherName = teach.String
	return d, nil
}
