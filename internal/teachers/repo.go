package teachers

import (
	"context"
	"database/sql"
	"errors"

	"pickup/internal/apperr"
	"pickup/internal/auth"
)

// Repository persists teachers in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const teacherColumns = `id, name, phone, pin_hash, access, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeacher(row rowScanner) (Teacher, error) {
	var (
		t      Teacher
		access string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Phone, &t.PinHash, &access, &t.IsActive, &t.CreatedAt); err != nil {
		return Teacher{}, err
	}
	t.Access = auth.NormalizeAccess(access)
	return t, nil
}

func notFound(t Teacher, err error) (Teacher, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	return t, err
}

// ActiveByPhone finds an active teacher for login.
func (r *Repository) ActiveByPhone(ctx context.Context, phone string) (Teacher, error) {
	return notFound(scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE phone = $1 AND is_active = true`, phone)))
}

// ByPhone finds a teacher regardless of status.
func (r *Repository) ByPhone(ctx context.Context, phone string) (Teacher, error) {
	return notFound(scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE phone = $1`, phone)))
}

func (r *Repository) Get(ctx context.Context, id int64) (Teacher, error) {
	return notFound(scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)))
}

// List returns every teacher by id.
func (r *Repository) List(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Create inserts an active teacher.
func (r *Repository) Create(ctx context.Context, t Teacher) (Teacher, error) {
	out, err := scanTeacher(r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (name, phone, pin_hash, is_active, access)
		VALUES ($1, $2, $3, true, $4)
		RETURNING `+teacherColumns,
		t.Name, t.Phone, t.PinHash, string(t.Access)))
	if err != nil {
		return Teacher{}, apperr.FromDB(err, "A teacher with this phone already exists", "")
	}
	return out, nil
}

// Update overwrites the editable columns, including the PIN hash.
func (r *Repository) Update(ctx context.Context, t Teacher) (Teacher, error) {
	out, err := scanTeacher(r.db.QueryRowContext(ctx, `
		UPDATE teachers
		SET name = $1, phone = $2, is_active = $3, access = $4, pin_hash = $5
		WHERE id = $6
		RETURNING `+teacherColumns,
		t.Name, t.Phone, t.IsActive, string(t.Access), t.PinHash, t.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, apperr.FromDB(err, "A teacher with this phone already exists", "")
	}
	return out, nil
}

// Delete removes a teacher; their attendance logs keep a null teacher.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
