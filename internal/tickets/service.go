package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// Service handles ticket business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all tickets.
func (s *Service) List(ctx context.Context) ([]Ticket, error) {
	return s.repo.List(ctx)
}

// Get fetches a single ticket.
func (s *Service) Get(ctx context.Context, id int64) (Ticket, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a ticket. New tickets always start open.
func (s *Service) Create(ctx context.Context, actorID string, ticket Ticket) (Ticket, error) {
	ticket.Subject = strings.TrimSpace(ticket.Subject)
	if ticket.Subject == "" {
		return Ticket{}, errors.New("tickets: subject required")
	}
	ticket.Status = StatusOpen
	if !validPriority(ticket.Priority) {
		ticket.Priority = PriorityMedium
	}
	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return Ticket{}, err
	}
	s.recordAudit(ctx, actorID, "create", created.ID)
	return created, nil
}

// Update validates the status transition and updates the ticket.
func (s *Service) Update(ctx context.Context, actorID string, ticket Ticket) (Ticket, error) {
	ticket.Subject = strings.TrimSpace(ticket.Subject)
	if ticket.Subject == "" {
		return Ticket{}, errors.New("tickets: subject required")
	}
	if !validPriority(ticket.Priority) {
		return Ticket{}, errors.New("tickets: invalid priority")
	}
	current, err := s.repo.Get(ctx, ticket.ID)
	if err != nil {
		return Ticket{}, err
	}
	if !CanTransition(current.Status, ticket.Status) {
		return Ticket{}, fmt.Errorf("tickets: cannot move from %s to %s", current.Status, ticket.Status)
	}
	updated, err := s.repo.Update(ctx, ticket)
	if err != nil {
		return Ticket{}, err
	}
	s.recordAudit(ctx, actorID, "update", updated.ID)
	return updated, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ticket",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit ticket", slog.Any("error", err))
	}
}

func validPriority(priority string) bool {
	for _, p := range Priorities() {
		if p == priority {
			return true
		}
	}
	return false
}
