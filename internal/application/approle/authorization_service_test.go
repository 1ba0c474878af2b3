package approle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentgate/internal/domain/approle"
	"agentgate/internal/shared/config"
	"agentgate/internal/shared/constants"
)

func mustCreateRole(t *testing.T, svc *testServices, cmd CreateRoleCommand) *approle.Role {
	t.Helper()
	role, err := svc.admin.CreateRole(context.Background(), cmd, "test")
	require.NoError(t, err)
	return role
}

func TestResolvePermissionsSingleClaim(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:            "power_user",
		Name:          "Power User",
		Claims:        []string{"Faculty"},
		GrantedTools:  []string{"code_interpreter", "calculator"},
		GrantedModels: []string{"claude-opus"},
		QuotaTier:     "premium",
		Priority:      100,
	})

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"Faculty"})
	require.NoError(t, err)

	assert.Equal(t, "subject-1", perms.SubjectID)
	assert.Equal(t, []string{"power_user"}, perms.RoleIDs)
	assert.Equal(t, []string{"calculator", "code_interpreter"}, perms.Tools)
	assert.Equal(t, []string{"claude-opus"}, perms.Models)
	assert.Equal(t, approle.QuotaTier("premium"), perms.Tier)
}

func TestResolvePermissionsMergesMatchedRoles(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "role_a",
		Name:         "Role A",
		Claims:       []string{"groupA"},
		GrantedTools: []string{"calculator"},
		QuotaTier:    "basic",
		Priority:     10,
	})
	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "role_b",
		Name:         "Role B",
		Claims:       []string{"groupB"},
		GrantedTools: []string{"web_search"},
		QuotaTier:    "premium",
		Priority:     100,
	})

	// Claim ordering must not influence the outcome.
	for _, claims := range [][]string{
		{"groupA", "groupB"},
		{"groupB", "groupA"},
	} {
		svc.cache.InvalidateAll()
		perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", claims)
		require.NoError(t, err)
		assert.Equal(t, []string{"calculator", "web_search"}, perms.Tools)
		assert.Equal(t, approle.QuotaTier("premium"), perms.Tier)
	}
}

func TestResolvePermissionsWildcard(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "narrow",
		Name:         "Narrow",
		Claims:       []string{"member"},
		GrantedTools: []string{"calculator"},
	})
	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "broad",
		Name:         "Broad",
		Claims:       []string{"staff"},
		GrantedTools: []string{"*"},
	})

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member", "staff"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, perms.Tools)

	ok, err := svc.authz.CanAccessTool(ctx, "subject-1", []string{"member", "staff"}, "anything_at_all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolvePermissionsSkipsDisabledRoles(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "active",
		Name:         "Active",
		Claims:       []string{"member"},
		GrantedTools: []string{"calculator"},
	})
	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "dormant",
		Name:         "Dormant",
		Claims:       []string{"member"},
		GrantedTools: []string{"web_search"},
	})
	disabled := false
	_, err := svc.admin.UpdateRole(ctx, "dormant", UpdateRoleCommand{Enabled: &disabled}, "test")
	require.NoError(t, err)

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, perms.RoleIDs)
	assert.Equal(t, []string{"calculator"}, perms.Tools)
}

func TestResolvePermissionsDefaultRoleFallback(t *testing.T) {
	cfg := &config.AppRoleConfig{
		DefaultRoleTools:  []string{"calculator"},
		DefaultRoleModels: []string{"gpt-4o-mini"},
		DefaultRoleTier:   "free",
	}
	svc := newTestServices(cfg)
	ctx := context.Background()

	require.NoError(t, EnsureSystemRoles(ctx, svc.repo, cfg, testLogger()))

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"unrecognized_claim"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleIDDefault}, perms.RoleIDs)
	assert.Equal(t, []string{"calculator"}, perms.Tools)
	assert.Equal(t, []string{"gpt-4o-mini"}, perms.Models)
	assert.Equal(t, approle.QuotaTier("free"), perms.Tier)

	// Zero claims resolve the same way.
	svc.cache.InvalidateAll()
	perms, err = svc.authz.ResolvePermissions(ctx, "subject-2", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleIDDefault}, perms.RoleIDs)
}

func TestResolvePermissionsNoDefaultRole(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"nothing"})
	require.NoError(t, err)
	assert.Empty(t, perms.RoleIDs)
	assert.Empty(t, perms.Tools)
	assert.False(t, perms.CanAccessTool("calculator"))
}

func TestResolvePermissionsAdminClaim(t *testing.T) {
	cfg := &config.AppRoleConfig{AdminClaims: []string{"org:admins"}}
	svc := newTestServices(cfg)
	ctx := context.Background()

	require.NoError(t, EnsureSystemRoles(ctx, svc.repo, cfg, testLogger()))

	perms, err := svc.authz.ResolvePermissions(ctx, "root-subject", []string{"org:admins"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleIDSystemAdmin}, perms.RoleIDs)
	assert.Equal(t, []string{"*"}, perms.Tools)
	assert.Equal(t, []string{"*"}, perms.Models)
	assert.Equal(t, approle.QuotaTierUnlimited, perms.Tier)
}

func TestResolvePermissionsAdminFallbackWhenRowMissing(t *testing.T) {
	// The system_admin row was never seeded; the configured admin claim
	// must still resolve to wildcard access.
	cfg := &config.AppRoleConfig{AdminClaims: []string{"org:admins"}}
	svc := newTestServices(cfg)
	ctx := context.Background()

	perms, err := svc.authz.ResolvePermissions(ctx, "root-subject", []string{"org:admins"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleIDSystemAdmin}, perms.RoleIDs)
	assert.Equal(t, []string{"*"}, perms.Tools)
	assert.Equal(t, approle.QuotaTierUnlimited, perms.Tier)
}

func TestResolvePermissionsCachesSubject(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:           "member_role",
		Name:         "Member",
		Claims:       []string{"member"},
		GrantedTools: []string{"calculator"},
	})

	first, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)

	// A write bypassing the service must stay invisible until the cache
	// is invalidated.
	role, err := svc.repo.GetByID(ctx, "member_role")
	require.NoError(t, err)
	require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"calculator", "web_search"}))
	require.NoError(t, svc.repo.Update(ctx, role))

	cached, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, first.Tools, cached.Tools)

	svc.cache.InvalidateRole("member_role")
	fresh, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{"calculator", "web_search"}, fresh.Tools)
}

func TestResolvePermissionsFailsClosed(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	svc.repo.failWith = assert.AnError

	perms, err := svc.authz.ResolvePermissions(ctx, "subject-1", []string{"member"})
	assert.Error(t, err)
	assert.Nil(t, perms)

	ok, err := svc.authz.CanAccessTool(ctx, "subject-1", []string{"member"}, "calculator")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestGetAccessibleSets(t *testing.T) {
	svc := newTestServices(nil)
	ctx := context.Background()

	mustCreateRole(t, svc, CreateRoleCommand{
		ID:            "member_role",
		Name:          "Member",
		Claims:        []string{"member"},
		GrantedTools:  []string{"calculator", "web_search"},
		GrantedModels: []string{"gpt-4o-mini"},
	})

	tools, err := svc.authz.GetAccessibleTools(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{"calculator", "web_search"}, tools)

	models, err := svc.authz.GetAccessibleModels(ctx, "subject-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini"}, models)

	ok, err := svc.authz.CanAccessModel(ctx, "subject-1", []string{"member"}, "claude-opus")
	require.NoError(t, err)
	assert.False(t, ok)
}
