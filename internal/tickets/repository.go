package tickets

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// RepositoryPort defines data access methods for tickets.
type RepositoryPort interface {
	List(ctx context.Context) ([]Ticket, error)
	Get(ctx context.Context, id int64) (Ticket, error)
	Create(ctx context.Context, ticket Ticket) (Ticket, error)
	Update(ctx context.Context, ticket Ticket) (Ticket, error)
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, subject, body, status, priority, requester, assigned_to, asset_tag, created_at, updated_at`

// List returns all tickets, newest first.
func (r *Repository) List(ctx context.Context) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get fetches a ticket by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		return Ticket{}, err
	}
	return t, nil
}

// Create inserts a new ticket.
func (r *Repository) Create(ctx context.Context, ticket Ticket) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tickets (subject, body, status, priority, requester, assigned_to, asset_tag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+ticketColumns,
		ticket.Subject, ticket.Body, ticket.Status, ticket.Priority, ticket.Requester, ticket.AssignedTo, ticket.AssetTag)
	return scanTicket(row)
}

// Update modifies an existing ticket.
func (r *Repository) Update(ctx context.Context, ticket Ticket) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets SET subject = $2, body = $3, status = $4, priority = $5, assigned_to = $6, asset_tag = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+ticketColumns,
		ticket.ID, ticket.Subject, ticket.Body, ticket.Status, ticket.Priority, ticket.AssignedTo, ticket.AssetTag)
	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		return Ticket{}, err
	}
	return updated, nil
}

// Delete removes a ticket.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.Subject, &t.Body, &t.Status, &t.Priority, &t.Requester, &t.AssignedTo, &t.AssetTag, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

var _ RepositoryPort = (*Repository)(nil)
