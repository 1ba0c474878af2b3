package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.RoleModel{}, &models.RoleClaimModel{}, &models.RoleResourceModel{})
	require.NoError(t, err)

	return db
}

func buildTestRole(t *testing.T, id string) *approle.Role {
	role, err := approle.NewRole(id, "Test Role "+id, "test role")
	require.NoError(t, err)
	return role
}

func TestAppRoleRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	t.Run("create role successfully", func(t *testing.T) {
		role := buildTestRole(t, "basic_user")
		require.NoError(t, role.SetClaims([]string{"plan:free"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"calculator", "web_search"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindModel, []string{"gpt-4o-mini"}))
		require.NoError(t, role.SetQuotaTier("bronze"))

		err := repo.Create(ctx, role)
		assert.NoError(t, err)

		found, err := repo.GetByID(ctx, "basic_user")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "basic_user", found.ID())
		assert.Equal(t, []string{"plan:free"}, found.Claims())
		assert.ElementsMatch(t, []string{"calculator", "web_search"}, found.GrantedTools())
		assert.Equal(t, approle.QuotaTier("bronze"), found.QuotaTier())
		assert.True(t, found.IsEnabled())
	})

	t.Run("duplicate id should fail", func(t *testing.T) {
		role := buildTestRole(t, "dup_role")
		require.NoError(t, repo.Create(ctx, role))

		again := buildTestRole(t, "dup_role")
		err := repo.Create(ctx, again)
		assert.ErrorIs(t, err, approle.ErrRoleExists)
	})

	t.Run("create populates index rows", func(t *testing.T) {
		role := buildTestRole(t, "indexed_role")
		require.NoError(t, role.SetClaims([]string{"group:qa", "plan:pro"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"code_interpreter"}))
		require.NoError(t, repo.Create(ctx, role))

		byClaim, err := repo.ListIDsByClaim(ctx, "group:qa")
		assert.NoError(t, err)
		assert.Contains(t, byClaim, "indexed_role")

		byTool, err := repo.ListIDsGrantingResource(ctx, approle.ResourceKindTool, "code_interpreter")
		assert.NoError(t, err)
		assert.Contains(t, byTool, "indexed_role")
	})
}

func TestAppRoleRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	t.Run("get non-existent role returns nil", func(t *testing.T) {
		found, err := repo.GetByID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("round-trips effective permissions", func(t *testing.T) {
		role := buildTestRole(t, "effective_role")
		require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"calculator"}))
		require.NoError(t, role.SetQuotaTier("silver"))
		role.SetEffective(approle.NewEffectivePermissions(
			[]string{"calculator", "web_search"},
			[]string{"claude-sonnet"},
			"silver",
		))
		require.NoError(t, repo.Create(ctx, role))

		found, err := repo.GetByID(ctx, "effective_role")
		require.NoError(t, err)
		require.NotNil(t, found)
		effective := found.Effective()
		assert.Equal(t, []string{"calculator", "web_search"}, effective.Tools)
		assert.Equal(t, []string{"claude-sonnet"}, effective.Models)
		assert.Equal(t, approle.QuotaTier("silver"), effective.Tier)
	})
}

func TestAppRoleRepository_GetByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, buildTestRole(t, "role_a")))
	require.NoError(t, repo.Create(ctx, buildTestRole(t, "role_b")))

	t.Run("returns only existing roles", func(t *testing.T) {
		roles, err := repo.GetByIDs(ctx, []string{"role_a", "role_b", "role_missing"})
		assert.NoError(t, err)
		assert.Len(t, roles, 2)
	})

	t.Run("empty input returns nothing", func(t *testing.T) {
		roles, err := repo.GetByIDs(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, roles)
	})
}

func TestAppRoleRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	t.Run("update role and resync indexes", func(t *testing.T) {
		role := buildTestRole(t, "mutable_role")
		require.NoError(t, role.SetClaims([]string{"plan:free"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"calculator"}))
		require.NoError(t, repo.Create(ctx, role))

		require.NoError(t, role.SetClaims([]string{"plan:pro"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindTool, []string{"web_search"}))
		role.Touch("admin")
		require.NoError(t, repo.Update(ctx, role))

		found, err := repo.GetByID(ctx, "mutable_role")
		require.NoError(t, err)
		assert.Equal(t, []string{"plan:pro"}, found.Claims())
		assert.Equal(t, []string{"web_search"}, found.GrantedTools())
		assert.Equal(t, "admin", found.UpdatedBy())

		stale, err := repo.ListIDsByClaim(ctx, "plan:free")
		assert.NoError(t, err)
		assert.NotContains(t, stale, "mutable_role")

		fresh, err := repo.ListIDsGrantingResource(ctx, approle.ResourceKindTool, "web_search")
		assert.NoError(t, err)
		assert.Contains(t, fresh, "mutable_role")
	})

	t.Run("update non-existent role", func(t *testing.T) {
		role := buildTestRole(t, "ghost_role")
		err := repo.Update(ctx, role)
		assert.ErrorIs(t, err, approle.ErrRoleNotFound)
	})
}

func TestAppRoleRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	t.Run("delete removes role and index rows", func(t *testing.T) {
		role := buildTestRole(t, "doomed_role")
		require.NoError(t, role.SetClaims([]string{"group:temp"}))
		require.NoError(t, role.SetGrants(approle.ResourceKindModel, []string{"gpt-4o"}))
		require.NoError(t, repo.Create(ctx, role))

		require.NoError(t, repo.Delete(ctx, "doomed_role"))

		found, err := repo.GetByID(ctx, "doomed_role")
		assert.NoError(t, err)
		assert.Nil(t, found)

		byClaim, err := repo.ListIDsByClaim(ctx, "group:temp")
		assert.NoError(t, err)
		assert.Empty(t, byClaim)

		byModel, err := repo.ListIDsGrantingResource(ctx, approle.ResourceKindModel, "gpt-4o")
		assert.NoError(t, err)
		assert.Empty(t, byModel)
	})

	t.Run("delete non-existent role", func(t *testing.T) {
		err := repo.Delete(ctx, "missing")
		assert.ErrorIs(t, err, approle.ErrRoleNotFound)
	})
}

func TestAppRoleRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	enabled1 := buildTestRole(t, "list_a")
	enabled2 := buildTestRole(t, "list_b")
	disabled := buildTestRole(t, "list_c")
	require.NoError(t, disabled.Disable())

	require.NoError(t, repo.Create(ctx, enabled1))
	require.NoError(t, repo.Create(ctx, enabled2))
	require.NoError(t, repo.Create(ctx, disabled))

	t.Run("list all", func(t *testing.T) {
		roles, total, err := repo.List(ctx, approle.RoleFilter{Page: 1, PageSize: 10})
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, roles, 3)
	})

	t.Run("filter by enabled", func(t *testing.T) {
		enabled := true
		roles, total, err := repo.List(ctx, approle.RoleFilter{Enabled: &enabled, Page: 1, PageSize: 10})
		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, roles, 2)
	})

	t.Run("pagination", func(t *testing.T) {
		roles, total, err := repo.List(ctx, approle.RoleFilter{Page: 2, PageSize: 2})
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, roles, 1)
	})
}

func TestAppRoleRepository_ListIDsByClaim(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	a := buildTestRole(t, "claim_a")
	require.NoError(t, a.SetClaims([]string{"group:eng"}))
	b := buildTestRole(t, "claim_b")
	require.NoError(t, b.SetClaims([]string{"group:eng", "plan:pro"}))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	ids, err := repo.ListIDsByClaim(ctx, "group:eng")
	assert.NoError(t, err)
	assert.Equal(t, []string{"claim_a", "claim_b"}, ids)

	ids, err = repo.ListIDsByClaim(ctx, "group:nobody")
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAppRoleRepository_ListInheritingFrom(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	parent := buildTestRole(t, "parent_role")
	require.NoError(t, repo.Create(ctx, parent))

	child := buildTestRole(t, "child_role")
	require.NoError(t, child.SetInheritsFrom([]string{"parent_role"}))
	require.NoError(t, repo.Create(ctx, child))

	unrelated := buildTestRole(t, "loner_role")
	require.NoError(t, repo.Create(ctx, unrelated))

	dependents, err := repo.ListInheritingFrom(ctx, "parent_role")
	assert.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "child_role", dependents[0].ID())

	dependents, err = repo.ListInheritingFrom(ctx, "child_role")
	assert.NoError(t, err)
	assert.Empty(t, dependents)
}

func TestAppRoleRepository_Exists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, buildTestRole(t, "present")))

	ok, err := repo.Exists(ctx, "present")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAppRoleRepository_TransactionRollback(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRoleRepository(db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := NewAppRoleRepository(tx)
		role := buildTestRole(t, "txn_role")
		if err := txRepo.Create(ctx, role); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.Error(t, err)

	found, err := repo.GetByID(ctx, "txn_role")
	assert.NoError(t, err)
	assert.Nil(t, found)
}
