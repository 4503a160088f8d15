package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, employee_id, work_day, check_in, check_out, created_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.WorkDay, &rec.CheckIn, &rec.CheckOut, &rec.CreatedAt)
	return rec, err
}

// Insert writes a new open record. It reports false without error when a
// record for the same (employee, work day) already exists; the unique
// constraint is what serializes concurrent check-ins across sessions.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, employee_id, work_day, check_in)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, work_day) DO NOTHING
		RETURNING created_at
	`, rec.ID, rec.EmployeeID, rec.WorkDay, rec.CheckIn)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// employee foreign key violated
			return Record{}, false, fmt.Errorf("employee %s: %w", rec.EmployeeID, ErrNotFound)
		}
		return Record{}, false, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, true, nil
}

// Get returns a record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("attendance %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get attendance: %w", err)
	}
	return rec, nil
}

// GetByEmployeeDay returns the record for one employee on one work day.
func (r *Repository) GetByEmployeeDay(ctx context.Context, employeeID string, day time.Time) (Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance WHERE employee_id = $1 AND work_day = $2
	`, employeeID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get attendance by day: %w", err)
	}
	return rec, nil
}

// SetCheckOut closes a record. It reports false when the record was already
// closed by a racing caller.
func (r *Repository) SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET check_out = $2 WHERE id = $1 AND check_out IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("set check-out: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update overwrites a record wholesale. Administrative path, no state checks.
func (r *Repository) Update(ctx context.Context, rec Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance
		SET employee_id = $2, work_day = $3, check_in = $4, check_out = $5
		WHERE id = $1
	`, rec.ID, rec.EmployeeID, rec.WorkDay, rec.CheckIn, rec.CheckOut)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attendance %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a record unconditionally.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attendance %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns records matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT ` + recordColumns + ` FROM attendance`
	args := []any{}
	clauses := []string{}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, fmt.Sprintf("work_day >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, fmt.Sprintf("work_day <= $%d", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY check_in DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListRange returns all records whose work day falls in [from, to],
// inclusive, for report aggregation.
func (r *Repository) ListRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance
		WHERE work_day >= $1 AND work_day <= $2
		ORDER BY employee_id, work_day
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
