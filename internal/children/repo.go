package children

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pickup/internal/apperr"
)

// Repository persists children and their pickers in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const childColumns = `id, external_id, first_name, last_name, class_name, guardian_phone, qr_hidden, created_at`

const pickerColumns = `id, child_id, name, relationship, photo_url, sort_order, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanChild(row rowScanner) (Child, error) {
	var (
		c                      Child
		ext, class, guardPhone sql.NullString
	)
	if err := row.Scan(&c.ID, &ext, &c.FirstName, &c.LastName, &class, &guardPhone, &c.QRHidden, &c.CreatedAt); err != nil {
		return Child{}, err
	}
	c.ExternalID = nullString(ext)
	c.ClassName = nullString(class)
	c.GuardianPhone = nullString(guardPhone)
	return c, nil
}

func scanPicker(row rowScanner) (Picker, error) {
	var (
		p   Picker
		rel sql.NullString
	)
	if err := row.Scan(&p.ID, &p.ChildID, &p.Name, &rel, &p.PhotoURL, &p.SortOrder, &p.CreatedAt); err != nil {
		return Picker{}, err
	}
	p.Relationship = nullString(rel)
	return p, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// List returns all children by id.
func (r *Repository) List(ctx context.Context) ([]Child, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+childColumns+` FROM children ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Child{}
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Get fetches one child.
func (r *Repository) Get(ctx context.Context, id int64) (Child, error) {
	c, err := scanChild(r.db.QueryRowContext(ctx, `SELECT `+childColumns+` FROM children WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Child{}, ErrChildNotFound
	}
	return c, err
}

func insertChild(ctx context.Context, q execQuerier, in NewChild) (Child, error) {
	return scanChild(q.QueryRowContext(ctx, `
		INSERT INTO children (external_id, first_name, last_name, class_name, guardian_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+childColumns,
		in.ExternalID, in.FirstName, in.LastName, in.ClassName, in.GuardianPhone))
}

func insertPicker(ctx context.Context, q execQuerier, in NewPicker) (Picker, error) {
	p, err := scanPicker(q.QueryRowContext(ctx, `
		INSERT INTO authorized_pickers (child_id, name, relationship, photo_url, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pickerColumns,
		in.ChildID, in.Name, in.Relationship, in.PhotoURL, in.SortOrder))
	if err != nil {
		return Picker{}, apperr.FromDB(err, "That picker slot is already taken", "Child not found")
	}
	return p, nil
}

// Create inserts one child.
func (r *Repository) Create(ctx context.Context, in NewChild) (Child, error) {
	return insertChild(ctx, r.db, in)
}

// CreateMany inserts a roster in a single transaction.
func (r *Repository) CreateMany(ctx context.Context, in []NewChild) ([]Child, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]Child, 0, len(in))
	for i, c := range in {
		created, err := insertChild(ctx, tx, c)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, created)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// CreateWithPickers inserts a child and the pickers built for its new id in one transaction.
func (r *Repository) CreateWithPickers(ctx context.Context, in NewChild, build func(ctx context.Context, childID int64) ([]NewPicker, error)) (Child, []Picker, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Child{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	child, err := insertChild(ctx, tx, in)
	if err != nil {
		return Child{}, nil, err
	}
	news, err := build(ctx, child.ID)
	if err != nil {
		return Child{}, nil, err
	}
	pickers := make([]Picker, 0, len(news))
	for _, np := range news {
		np.ChildID = child.ID
		p, err := insertPicker(ctx, tx, np)
		if err != nil {
			return Child{}, nil, err
		}
		pickers = append(pickers, p)
	}
	if err := tx.Commit(); err != nil {
		return Child{}, nil, fmt.Errorf("commit: %w", err)
	}
	return child, pickers, nil
}

// Update overwrites the editable columns of a child.
func (r *Repository) Update(ctx context.Context, c Child) (Child, error) {
	out, err := scanChild(r.db.QueryRowContext(ctx, `
		UPDATE children
		SET first_name = $1, last_name = $2, class_name = $3, guardian_phone = $4
		WHERE id = $5
		RETURNING `+childColumns,
		c.FirstName, c.LastName, c.ClassName, c.GuardianPhone, c.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return Child{}, ErrChildNotFound
	}
	return out, err
}

// SetQRHidden toggles whether the dashboard shows the child's QR code.
func (r *Repository) SetQRHidden(ctx context.Context, id int64, hidden bool) (Child, error) {
	out, err := scanChild(r.db.QueryRowContext(ctx, `
		UPDATE children SET qr_hidden = $1 WHERE id = $2
		RETURNING `+childColumns, hidden, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Child{}, ErrChildNotFound
	}
	return out, err
}

// Delete removes a child; pickers cascade and attendance keeps a null child.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChildNotFound
	}
	return nil
}

// Pickers returns a child's pickers by sort order, at most MaxPickers.
func (r *Repository) Pickers(ctx context.Context, childID int64) ([]Picker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pickerColumns+` FROM authorized_pickers
		WHERE child_id = $1
		ORDER BY sort_order ASC
		LIMIT $2`, childID, MaxPickers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Picker{}
	for rows.Next() {
		p, err := scanPicker(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Picker fetches one picker.
func (r *Repository) Picker(ctx context.Context, id int64) (Picker, error) {
	p, err := scanPicker(r.db.QueryRowContext(ctx, `SELECT `+pickerColumns+` FROM authorized_pickers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Picker{}, ErrPickerNotFound
	}
	return p, err
}

// CreatePicker inserts one picker.
func (r *Repository) CreatePicker(ctx context.Context, in NewPicker) (Picker, error) {
	return insertPicker(ctx, r.db, in)
}

// UpdatePicker overwrites a picker's editable columns.
func (r *Repository) UpdatePicker(ctx context.Context, p Picker) (Picker, error) {
	out, err := scanPicker(r.db.QueryRowContext(ctx, `
		UPDATE authorized_pickers
		SET name = $1, relationship = $2, photo_url = $3
		WHERE id = $4
		RETURNING `+pickerColumns,
		p.Name, p.Relationship, p.PhotoURL, p.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return Picker{}, ErrPickerNotFound
	}
	return out, err
}

// DeletePicker removes a picker; logs keep a null picker.
func (r *Repository) DeletePicker(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorized_pickers WHERE id = $1`, id)
	return err
}
