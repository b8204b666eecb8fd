package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
)

const minPasswordLength = 8

// ErrWeakPassword is returned when a new password is too short.
var ErrWeakPassword = errors.New("users: password too short")

// Service handles account management business logic.
type Service struct {
	repo   RepositoryPort
	roles  *rbac.Service
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles *rbac.Service, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, audit: audit, logger: logger}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches an account by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create validates input, hashes the password, and inserts the account.
func (s *Service) Create(ctx context.Context, actorID string, u User, password string) (User, error) {
	u.Username = strings.TrimSpace(strings.ToLower(u.Username))
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Username == "" || u.Email == "" || u.Name == "" {
		return User{}, errors.New("users: username, email, and name required")
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	if err := s.validateRole(ctx, u.RoleSlug); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = string(hash)
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.create", created.ID)
	return created, nil
}

// Update changes profile fields on an account.
func (s *Service) Update(ctx context.Context, actorID string, u User) (User, error) {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" || u.Name == "" {
		return User{}, errors.New("users: email and name required")
	}
	if err := s.validateRole(ctx, u.RoleSlug); err != nil {
		return User{}, err
	}
	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.update", updated.ID)
	return updated, nil
}

// ResetPassword replaces the password hash on an account.
func (s *Service) ResetPassword(ctx context.Context, actorID string, id int64, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users.reset_password", id)
	return nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, actorID string, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	action := "users.deactivate"
	if active {
		action = "users.activate"
	}
	s.recordAudit(ctx, actorID, action, id)
	return nil
}

// RoleOptions lists active roles for the account form.
func (s *Service) RoleOptions(ctx context.Context) ([]rbac.Role, error) {
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	var active []rbac.Role
	for _, r := range roles {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (s *Service) validateRole(ctx context.Context, slug string) error {
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r.Slug == slug && r.IsActive {
			return nil
		}
	}
	return errors.New("users: unknown or inactive role")
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit user", slog.Any("error", err))
	}
}
