package rbac

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubRoleRepo struct {
	roles    map[string]Role
	getCalls int
}

func newStubRoleRepo(roles ...Role) *stubRoleRepo {
	repo := &stubRoleRepo{roles: make(map[string]Role)}
	for _, r := range roles {
		repo.roles[r.Slug] = r
	}
	return repo
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRoleRepo) GetRole(ctx context.Context, slug string) (Role, error) {
	s.getCalls++
	r, ok := s.roles[slug]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (s *stubRoleRepo) CreateRole(ctx context.Context, role Role) (Role, error) {
	if _, exists := s.roles[role.Slug]; exists {
		return Role{}, shared.ErrDuplicate
	}
	s.roles[role.Slug] = role
	return role, nil
}

func (s *stubRoleRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	existing, ok := s.roles[role.Slug]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	existing.Name = role.Name
	existing.Grants = role.Grants
	existing.IsActive = role.IsActive
	s.roles[role.Slug] = existing
	return existing, nil
}

func (s *stubRoleRepo) DeleteRole(ctx context.Context, slug string) error {
	if _, ok := s.roles[slug]; !ok {
		return shared.ErrNotFound
	}
	delete(s.roles, slug)
	return nil
}

func (s *stubRoleRepo) CountRoles(ctx context.Context) (int, error) {
	return len(s.roles), nil
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestHasPermissionDefaultDeny(t *testing.T) {
	repo := newStubRoleRepo(Role{
		Slug:     "viewer",
		Name:     "Viewer",
		Grants:   []Grant{{Resource: ResourceTickets, Actions: []Action{ActionRead}}},
		IsActive: true,
	})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.True(t, svc.HasPermission(ctx, "viewer", ResourceTickets, ActionRead))
	require.False(t, svc.HasPermission(ctx, "viewer", ResourceTickets, ActionDelete))
	require.False(t, svc.HasPermission(ctx, "viewer", ResourceAssets, ActionRead))
	require.False(t, svc.HasPermission(ctx, "viewer", Resource("payments"), ActionRead))
	require.False(t, svc.HasPermission(ctx, "viewer", ResourceTickets, Action("approve")))
}

func TestHasPermissionUnknownRole(t *testing.T) {
	svc := NewService(newStubRoleRepo(), nil, nil)
	require.False(t, svc.HasPermission(context.Background(), "ghost", ResourceTickets, ActionRead))
	require.False(t, svc.HasPermission(context.Background(), "", ResourceTickets, ActionRead))
	require.False(t, svc.HasPermission(context.Background(), "   ", ResourceTickets, ActionRead))
}

func TestHasPermissionInactiveRoleDenied(t *testing.T) {
	repo := newStubRoleRepo(Role{
		Slug:     "suspended",
		Grants:   []Grant{{Resource: ResourceTickets, Actions: []Action{ActionRead}}},
		IsActive: false,
	})
	svc := NewService(repo, nil, nil)
	require.False(t, svc.HasPermission(context.Background(), "suspended", ResourceTickets, ActionRead))
}

func TestHasPermissionCachesRole(t *testing.T) {
	repo := newStubRoleRepo(Role{
		Slug:     "technician",
		Grants:   []Grant{{Resource: ResourceRepairs, Actions: []Action{ActionRead, ActionUpdate}}},
		IsActive: true,
	})
	svc := NewService(repo, testCache(t), nil)
	ctx := context.Background()

	require.True(t, svc.HasPermission(ctx, "technician", ResourceRepairs, ActionRead))
	require.True(t, svc.HasPermission(ctx, "technician", ResourceRepairs, ActionUpdate))
	require.Equal(t, 1, repo.getCalls)
}

func TestUpdateRoleInvalidatesCache(t *testing.T) {
	repo := newStubRoleRepo(Role{
		Slug:     "helpdesk",
		Name:     "Helpdesk",
		Grants:   []Grant{{Resource: ResourceTickets, Actions: []Action{ActionRead}}},
		IsActive: true,
	})
	svc := NewService(repo, testCache(t), nil)
	ctx := context.Background()

	require.True(t, svc.HasPermission(ctx, "helpdesk", ResourceTickets, ActionRead))

	_, err := svc.UpdateRole(ctx, "helpdesk", "Helpdesk", []Grant{
		{Resource: ResourceKnowledgeBase, Actions: []Action{ActionRead}},
	}, true)
	require.NoError(t, err)

	// The stale ticket grant must not survive the mutation.
	require.False(t, svc.HasPermission(ctx, "helpdesk", ResourceTickets, ActionRead))
	require.True(t, svc.HasPermission(ctx, "helpdesk", ResourceKnowledgeBase, ActionRead))
}

func TestDeleteRoleProtectsSystemRoles(t *testing.T) {
	repo := newStubRoleRepo(Role{Slug: RoleAdministrator, IsSystem: true, IsActive: true})
	svc := NewService(repo, nil, nil)

	err := svc.DeleteRole(context.Background(), RoleAdministrator)
	require.ErrorIs(t, err, ErrSystemRole)
	_, getErr := repo.GetRole(context.Background(), RoleAdministrator)
	require.NoError(t, getErr)
}

func TestCreateRoleValidatesGrants(t *testing.T) {
	svc := NewService(newStubRoleRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "custom", "Custom", []Grant{
		{Resource: Resource("bogus"), Actions: []Action{ActionRead}},
	})
	require.Error(t, err)

	_, err = svc.CreateRole(ctx, "custom", "Custom", []Grant{
		{Resource: ResourceAssets, Actions: []Action{ActionRead}},
		{Resource: ResourceAssets, Actions: []Action{ActionUpdate}},
	})
	require.Error(t, err)

	_, err = svc.CreateRole(ctx, "", "Custom", nil)
	require.Error(t, err)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	repo := newStubRoleRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	count, _ := repo.CountRoles(ctx)
	require.Equal(t, len(BuiltinRoles()), count)

	// Second seed must not duplicate or error.
	require.NoError(t, svc.Seed(ctx))
	count, _ = repo.CountRoles(ctx)
	require.Equal(t, len(BuiltinRoles()), count)
}

func TestBuiltinEmployeeIsReadMostly(t *testing.T) {
	repo := newStubRoleRepo(BuiltinRoles()...)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.True(t, svc.HasPermission(ctx, RoleEmployee, ResourceTickets, ActionCreate))
	require.True(t, svc.HasPermission(ctx, RoleEmployee, ResourceKnowledgeBase, ActionRead))
	require.False(t, svc.HasPermission(ctx, RoleEmployee, ResourceKnowledgeBase, ActionUpdate))
	require.False(t, svc.HasPermission(ctx, RoleEmployee, ResourceUsers, ActionRead))
	require.True(t, svc.HasPermission(ctx, RoleAdministrator, ResourceRoles, ActionDelete))
}
