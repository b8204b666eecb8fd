package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubUserRepo struct {
	users map[string]*User
}

func (s *stubUserRepo) FindByLogin(ctx context.Context, login string) (*User, error) {
	if u, ok := s.users[login]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*User{
		"dana": {ID: 7, Username: "dana", RoleSlug: "technician", Name: "Dana", PasswordHash: hashFor(t, "s3cret-pass"), IsActive: true},
	}}
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "dana", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.Equal(t, "technician", user.RoleSlug)
}

func TestAuthenticateFailureSurfaceIsUniform(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*User{
		"dana":   {ID: 7, Username: "dana", PasswordHash: hashFor(t, "s3cret-pass"), IsActive: true},
		"former": {ID: 8, Username: "former", PasswordHash: hashFor(t, "s3cret-pass"), IsActive: false},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	cases := map[string]struct {
		login    string
		password string
	}{
		"unknown account":     {login: "nobody", password: "s3cret-pass"},
		"wrong password":      {login: "dana", password: "wrong"},
		"deactivated account": {login: "former", password: "s3cret-pass"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tc.login, tc.password)
			require.Nil(t, user)
			require.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestSanitizeReturnTo(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/tickets":                  "/tickets",
		"/tickets?page=2":           "/tickets?page=2",
		"https://evil.example/":     "/",
		"//evil.example/phish":      "/",
		"relative/path":             "/",
		"javascript:alert(1)":       "/",
		"/assets/42/edit":           "/assets/42/edit",
		"http://localhost/internal": "/",
	}
	for input, want := range cases {
		require.Equal(t, want, sanitizeReturnTo(input), "input %q", input)
	}
}
