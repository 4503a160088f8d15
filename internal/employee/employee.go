package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means the employee does not exist.
var ErrNotFound = errors.New("employee not found")

// Roles an employee may hold.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// ValidRole reports whether role is one of the enumerated values.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleStaff
}

// Employee is one enrolled person. FaceRef points at the enrolled face in
// the recognizer gallery (and the archived enrollment photo).
type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	FaceRef   string    `json:"face_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists the employee directory in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new employee and returns it with id and created_at set.
func (r *Repository) Create(ctx context.Context, emp Employee) (Employee, error) {
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO employees (id, name, role, face_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, emp.ID, emp.Name, emp.Role, emp.FaceRef)
	if err := row.Scan(&emp.CreatedAt); err != nil {
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return emp, nil
}

// Get returns one employee by id.
func (r *Repository) Get(ctx context.Context, id string) (Employee, error) {
	var emp Employee
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, role, face_ref, created_at FROM employees WHERE id = $1
	`, id).Scan(&emp.ID, &emp.Name, &emp.Role, &emp.FaceRef, &emp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return emp, nil
}

// List returns all employees ordered by name.
func (r *Repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, face_ref, created_at FROM employees ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var res []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &emp.FaceRef, &emp.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, emp)
	}
	return res, rows.Err()
}

// ByID returns the directory keyed by employee id, for report assembly.
func (r *Repository) ByID(ctx context.Context) (map[string]Employee, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]Employee, len(all))
	for _, emp := range all {
		m[emp.ID] = emp
	}
	return m, nil
}

// Update overwrites name, role and (when non-empty) the face reference.
func (r *Repository) Update(ctx context.Context, emp Employee) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET name = $2, role = $3,
		    face_ref = CASE WHEN $4 = '' THEN face_ref ELSE $4 END
		WHERE id = $1
	`, emp.ID, emp.Name, emp.Role, emp.FaceRef)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("employee %s: %w", emp.ID, ErrNotFound)
	}
	return nil
}

// Delete removes an employee; attendance rows cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	return nil
}
