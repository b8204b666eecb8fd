package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]User), nextID: 1}
}

func (s *stubUserRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubUserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubUserRepo) Create(ctx context.Context, u User) (User, error) {
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return User{}, shared.ErrDuplicate
		}
	}
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	return u, nil
}

func (s *stubUserRepo) Update(ctx context.Context, u User) (User, error) {
	existing, ok := s.users[u.ID]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	existing.Email = u.Email
	existing.Name = u.Name
	existing.RoleSlug = u.RoleSlug
	s.users[u.ID] = existing
	return existing, nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *stubUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	s.users[id] = u
	return nil
}

type stubRoleRepo struct {
	roles []rbac.Role
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) { return s.roles, nil }
func (s *stubRoleRepo) GetRole(ctx context.Context, slug string) (rbac.Role, error) {
	for _, r := range s.roles {
		if r.Slug == slug {
			return r, nil
		}
	}
	return rbac.Role{}, shared.ErrNotFound
}
func (s *stubRoleRepo) CreateRole(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	return role, nil
}
func (s *stubRoleRepo) UpdateRole(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	return role, nil
}
func (s *stubRoleRepo) DeleteRole(ctx context.Context, slug string) error { return nil }
func (s *stubRoleRepo) CountRoles(ctx context.Context) (int, error)       { return len(s.roles), nil }

func testService(repo *stubUserRepo) *Service {
	roles := rbac.NewService(&stubRoleRepo{roles: []rbac.Role{
		{Slug: "technician", Name: "Technician", IsActive: true},
		{Slug: "retired", Name: "Retired", IsActive: false},
	}}, nil, nil)
	return NewService(repo, roles, nil, nil)
}

func TestCreateHashesPasswordAndNormalisesLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc := testService(repo)

	created, err := svc.Create(context.Background(), "1", User{
		Username: "  Dana.Smith ",
		Email:    "Dana@Example.COM",
		Name:     "Dana Smith",
		RoleSlug: "technician",
	}, "long-enough-pass")
	require.NoError(t, err)
	require.Equal(t, "dana.smith", created.Username)
	require.Equal(t, "dana@example.com", created.Email)
	require.NotEqual(t, "long-enough-pass", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("long-enough-pass")))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := testService(newStubUserRepo())
	_, err := svc.Create(context.Background(), "1", User{
		Username: "dana", Email: "dana@example.com", Name: "Dana", RoleSlug: "technician",
	}, "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateRejectsInactiveRole(t *testing.T) {
	svc := testService(newStubUserRepo())
	_, err := svc.Create(context.Background(), "1", User{
		Username: "dana", Email: "dana@example.com", Name: "Dana", RoleSlug: "retired",
	}, "long-enough-pass")
	require.Error(t, err)
}

func TestResetPasswordEnforcesMinimumLength(t *testing.T) {
	repo := newStubUserRepo()
	svc := testService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "1", User{
		Username: "dana", Email: "dana@example.com", Name: "Dana", RoleSlug: "technician",
	}, "long-enough-pass")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ResetPassword(ctx, "1", created.ID, "tiny"), ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(ctx, "1", created.ID, "another-long-pass"))

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("another-long-pass")))
}

func TestSetActiveTogglesAccount(t *testing.T) {
	repo := newStubUserRepo()
	svc := testService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "1", User{
		Username: "dana", Email: "dana@example.com", Name: "Dana", RoleSlug: "technician",
	}, "long-enough-pass")
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, "1", created.ID, false))
	stored, _ := repo.Get(ctx, created.ID)
	require.False(t, stored.IsActive)
}

func TestRoleOptionsSkipsInactiveRoles(t *testing.T) {
	svc := testService(newStubUserRepo())
	options, err := svc.RoleOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 1)
	require.Equal(t, "technician", options[0].Slug)
}
