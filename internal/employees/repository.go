package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for employees and departments.
type RepositoryPort interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) (Employee, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateDepartment(ctx context.Context, name string) (Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, name, email, department_id, position, is_active, created_at, updated_at`

// ListEmployees returns all employees ordered by name.
func (r *Repository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.DepartmentID, &e.Position, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEmployee fetches an employee by ID.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.DepartmentID, &e.Position, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// CreateEmployee inserts a new employee.
func (r *Repository) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO employees (name, email, department_id, position, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING `+employeeColumns,
		e.Name, e.Email, e.DepartmentID, e.Position)
	var created Employee
	err := row.Scan(&created.ID, &created.Name, &created.Email, &created.DepartmentID, &created.Position, &created.IsActive, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return Employee{}, mapUniqueViolation(err)
	}
	return created, nil
}

// UpdateEmployee updates an employee record.
func (r *Repository) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE employees SET name = $2, email = $3, department_id = $4, position = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+employeeColumns,
		e.ID, e.Name, e.Email, e.DepartmentID, e.Position, e.IsActive)
	var updated Employee
	err := row.Scan(&updated.ID, &updated.Name, &updated.Email, &updated.DepartmentID, &updated.Position, &updated.IsActive, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// ListDepartments returns all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDepartment inserts a new department.
func (r *Repository) CreateDepartment(ctx context.Context, name string) (Department, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO departments (name, created_at, updated_at) VALUES ($1, NOW(), NOW())
		RETURNING id, name, created_at, updated_at`, name)
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Department{}, mapUniqueViolation(err)
	}
	return d, nil
}

// DeleteDepartment removes an empty department.
func (r *Repository) DeleteDepartment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM departments
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM employees WHERE department_id = $1)`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
