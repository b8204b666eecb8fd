package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// ErrSystemRole is returned when a caller tries to delete a built-in role.
var ErrSystemRole = errors.New("rbac: system roles cannot be deleted")

const cacheTTL = time.Minute

// Service orchestrates role persistence and permission evaluation. The
// persisted roles table is authoritative; evaluation reads through a
// Redis cache with a short TTL that is invalidated on every mutation.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. The cache client may be nil, in which
// case every evaluation reads the repository.
func NewService(repo RepositoryPort, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Seed populates the roles table from the built-in table when empty.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.CountRoles(ctx)
	if err != nil {
		return fmt.Errorf("rbac: count roles: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, role := range BuiltinRoles() {
		if _, err := s.repo.CreateRole(ctx, role); err != nil {
			return fmt.Errorf("rbac: seed role %s: %w", role.Slug, err)
		}
	}
	return nil
}

// HasPermission reports whether the role identified by slug may perform
// action on resource. It fails closed: unknown roles, unknown resources,
// unknown actions and storage errors all yield false.
func (s *Service) HasPermission(ctx context.Context, slug string, resource Resource, action Action) bool {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return false
	}
	if _, err := ParseResource(string(resource)); err != nil {
		return false
	}
	if _, err := ParseAction(string(action)); err != nil {
		return false
	}
	role, err := s.roleForEvaluation(ctx, slug)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("rbac load role", slog.String("role", slug), slog.Any("error", err))
		}
		return false
	}
	return role.Allows(resource, action)
}

// ListRoles returns all persisted roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by slug.
func (s *Service) GetRole(ctx context.Context, slug string) (Role, error) {
	return s.repo.GetRole(ctx, slug)
}

// CreateRole validates and inserts a custom role.
func (s *Service) CreateRole(ctx context.Context, slug, name string, grants []Grant) (Role, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	name = strings.TrimSpace(name)
	if slug == "" || name == "" {
		return Role{}, errors.New("rbac: role slug and name required")
	}
	if err := validateGrants(grants); err != nil {
		return Role{}, err
	}
	role, err := s.repo.CreateRole(ctx, Role{Slug: slug, Name: name, Grants: grants, IsActive: true})
	if err != nil {
		return Role{}, err
	}
	s.invalidate(ctx, slug)
	return role, nil
}

// UpdateRole validates and updates name, grants and active flag.
func (s *Service) UpdateRole(ctx context.Context, slug, name string, grants []Grant, active bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	if err := validateGrants(grants); err != nil {
		return Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, Role{Slug: slug, Name: name, Grants: grants, IsActive: active})
	if err != nil {
		return Role{}, err
	}
	s.invalidate(ctx, slug)
	return role, nil
}

// DeleteRole removes a custom role. Built-in roles are protected.
func (s *Service) DeleteRole(ctx context.Context, slug string) error {
	role, err := s.repo.GetRole(ctx, slug)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	if err := s.repo.DeleteRole(ctx, slug); err != nil {
		return err
	}
	s.invalidate(ctx, slug)
	return nil
}

func (s *Service) roleForEvaluation(ctx context.Context, slug string) (Role, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, s.cacheKey(slug)).Bytes(); err == nil {
			var role Role
			if err := json.Unmarshal(data, &role); err == nil {
				return role, nil
			}
		}
	}
	// Collapse concurrent loads of the same role into one query.
	v, err, _ := s.group.Do(slug, func() (any, error) {
		role, err := s.repo.GetRole(ctx, slug)
		if err != nil {
			return Role{}, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(role); err == nil {
				_ = s.cache.Set(ctx, s.cacheKey(slug), data, cacheTTL).Err()
			}
		}
		return role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(slug)).Err(); err != nil && s.logger != nil {
		s.logger.Warn("rbac cache invalidate", slog.String("role", slug), slog.Any("error", err))
	}
}

func (s *Service) cacheKey(slug string) string {
	return "rbac:role:" + slug
}

func validateGrants(grants []Grant) error {
	seen := make(map[Resource]struct{}, len(grants))
	for _, g := range grants {
		if _, err := ParseResource(string(g.Resource)); err != nil {
			return err
		}
		if _, dup := seen[g.Resource]; dup {
			return fmt.Errorf("rbac: duplicate grant for resource %s", g.Resource)
		}
		seen[g.Resource] = struct{}{}
		for _, a := range g.Actions {
			if _, err := ParseAction(string(a)); err != nil {
				return err
			}
		}
	}
	return nil
}
