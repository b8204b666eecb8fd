package assets

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// Service handles asset business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all assets.
func (s *Service) List(ctx context.Context) ([]Asset, error) {
	return s.repo.List(ctx)
}

// Get fetches a single asset.
func (s *Service) Get(ctx context.Context, id int64) (Asset, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts an asset. An empty tag gets a generated
// one so labels can be printed before physical tagging.
func (s *Service) Create(ctx context.Context, actorID string, asset Asset) (Asset, error) {
	asset.Name = strings.TrimSpace(asset.Name)
	if asset.Name == "" {
		return Asset{}, errors.New("assets: name required")
	}
	if asset.Tag == "" {
		asset.Tag = "AST-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if !validStatus(asset.Status) {
		asset.Status = StatusInStock
	}
	created, err := s.repo.Create(ctx, asset)
	if err != nil {
		return Asset{}, err
	}
	s.recordAudit(ctx, actorID, "create", created.ID)
	return created, nil
}

// Update validates and updates an asset.
func (s *Service) Update(ctx context.Context, actorID string, asset Asset) (Asset, error) {
	asset.Name = strings.TrimSpace(asset.Name)
	if asset.Name == "" {
		return Asset{}, errors.New("assets: name required")
	}
	if !validStatus(asset.Status) {
		return Asset{}, errors.New("assets: invalid status")
	}
	updated, err := s.repo.Update(ctx, asset)
	if err != nil {
		return Asset{}, err
	}
	s.recordAudit(ctx, actorID, "update", updated.ID)
	return updated, nil
}

// Delete removes an asset.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "delete", id)
	return nil
}

// ExpiringWarranties returns assets whose warranty lapses within the window.
func (s *Service) ExpiringWarranties(ctx context.Context, window time.Duration) ([]Asset, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(window)
	var out []Asset
	for _, a := range all {
		if a.WarrantyExpiry.IsZero() || a.Status == StatusRetired {
			continue
		}
		if a.WarrantyExpiry.Before(deadline) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "asset",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit asset", slog.Any("error", err))
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
