package rbac

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines persistence operations for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, slug string) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	DeleteRole(ctx context.Context, slug string) error
	CountRoles(ctx context.Context) (int, error)
}

// Repository provides PostgreSQL backed persistence for roles. Grants are
// stored as a JSONB document alongside the role row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `slug, name, grants, is_system, is_active, created_at, updated_at`

// ListRoles returns all roles ordered by slug.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by slug.
func (r *Repository) GetRole(ctx context.Context, slug string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE slug = $1`, slug)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	grants, err := json.Marshal(role.Grants)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (slug, name, grants, is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+roleColumns,
		role.Slug, role.Name, grants, role.IsSystem, role.IsActive)
	return scanRole(row)
}

// UpdateRole updates name, grants and the active flag. The slug and the
// system flag are immutable.
func (r *Repository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	grants, err := json.Marshal(role.Grants)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, grants = $3, is_active = $4, updated_at = NOW()
		WHERE slug = $1
		RETURNING `+roleColumns,
		role.Slug, role.Name, grants, role.IsActive)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return updated, nil
}

// DeleteRole removes a non-system role by slug.
func (r *Repository) DeleteRole(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE slug = $1 AND is_system = FALSE`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountRoles returns the number of persisted roles.
func (r *Repository) CountRoles(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var grants []byte
	if err := row.Scan(&role.Slug, &role.Name, &grants, &role.IsSystem, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &role.Grants); err != nil {
			return Role{}, err
		}
	}
	return role, nil
}

var _ RepositoryPort = (*Repository)(nil)
