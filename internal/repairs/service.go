package repairs

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// Service handles repair business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all repairs.
func (s *Service) List(ctx context.Context) ([]Repair, error) {
	return s.repo.List(ctx)
}

// Get fetches a single repair.
func (s *Service) Get(ctx context.Context, id int64) (Repair, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a repair record.
func (s *Service) Create(ctx context.Context, actorID string, repair Repair) (Repair, error) {
	repair.AssetTag = strings.TrimSpace(repair.AssetTag)
	repair.Defect = strings.TrimSpace(repair.Defect)
	if repair.AssetTag == "" || repair.Defect == "" {
		return Repair{}, errors.New("repairs: asset tag and defect required")
	}
	if !validStatus(repair.Status) {
		repair.Status = StatusReported
	}
	created, err := s.repo.Create(ctx, repair)
	if err != nil {
		return Repair{}, err
	}
	s.recordAudit(ctx, actorID, "create", created.ID)
	return created, nil
}

// Update validates and updates a repair record.
func (s *Service) Update(ctx context.Context, actorID string, repair Repair) (Repair, error) {
	if !validStatus(repair.Status) {
		return Repair{}, errors.New("repairs: invalid status")
	}
	updated, err := s.repo.Update(ctx, repair)
	if err != nil {
		return Repair{}, err
	}
	s.recordAudit(ctx, actorID, "update", updated.ID)
	return updated, nil
}

// Delete removes a repair record.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id)
	return nil
}

// CountOpen returns the number of unfinished repairs.
func (s *Service) CountOpen(ctx context.Context) (int, error) {
	return s.repo.CountOpen(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "repair",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit repair", slog.Any("error", err))
	}
}

func validStatus(status string) bool {
	for _, s := range Statuses() {
		if s == status {
			return true
		}
	}
	return false
}
