package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines aggregate queries backing reports.
type RepositoryPort interface {
	AssetCountsByStatus(ctx context.Context) (map[string]int64, error)
	TicketCountsByStatus(ctx context.Context) (map[string]int64, error)
	OpenRepairCount(ctx context.Context) (int64, error)
	ActiveIssuanceCount(ctx context.Context) (int64, error)
}

// Repository provides PostgreSQL backed aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AssetCountsByStatus groups assets by status.
func (r *Repository) AssetCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countsByStatus(ctx, `SELECT status, COUNT(*) FROM assets GROUP BY status`)
}

// TicketCountsByStatus groups tickets by status.
func (r *Repository) TicketCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countsByStatus(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
}

// OpenRepairCount counts repairs not yet completed or written off.
func (r *Repository) OpenRepairCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM repairs WHERE status IN ('reported', 'in_service')`).Scan(&n)
	return n, err
}

// ActiveIssuanceCount counts issuances still outstanding.
func (r *Repository) ActiveIssuanceCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issuances WHERE status = 'issued'`).Scan(&n)
	return n, err
}

func (r *Repository) countsByStatus(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
