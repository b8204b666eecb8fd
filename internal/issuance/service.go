package issuance

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// Service handles issuance business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all issuances.
func (s *Service) List(ctx context.Context) ([]Issuance, error) {
	return s.repo.List(ctx)
}

// Get fetches a single issuance.
func (s *Service) Get(ctx context.Context, id int64) (Issuance, error) {
	return s.repo.Get(ctx, id)
}

// Issue hands an asset to an employee and generates a reference.
func (s *Service) Issue(ctx context.Context, actorID string, rec Issuance) (Issuance, error) {
	rec.AssetTag = strings.TrimSpace(rec.AssetTag)
	if rec.AssetTag == "" || rec.EmployeeID == 0 {
		return Issuance{}, errors.New("issuance: asset tag and employee required")
	}
	rec.Status = StatusIssued
	rec.Reference = "ISS-" + strings.ToUpper(uuid.NewString()[:8])
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Issuance{}, err
	}
	s.recordAudit(ctx, actorID, "issue", created.ID)
	return created, nil
}

// Close marks an active issuance as returned or lost.
func (s *Service) Close(ctx context.Context, actorID string, id int64, status string) (Issuance, error) {
	if status != StatusReturned && status != StatusLost {
		return Issuance{}, errors.New("issuance: invalid closing status")
	}
	rec, err := s.repo.MarkReturned(ctx, id, status)
	if err != nil {
		return Issuance{}, err
	}
	s.recordAudit(ctx, actorID, status, rec.ID)
	return rec, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "issuance",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit issuance", slog.Any("error", err))
	}
}
