package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/internal/shared"
)

const lookupTimeout = 5 * time.Second

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates credentials by username or email. Unknown
// account, deactivated account, wrong password and store timeout are all
// reported as the same ErrInvalidCredentials so the caller cannot tell
// which one occurred.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}
