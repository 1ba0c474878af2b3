package approle

import (
	"context"
	"fmt"
	"time"

	"agentgate/internal/domain/approle"
	"agentgate/internal/shared/config"
	"agentgate/internal/shared/constants"
	"agentgate/internal/shared/logger"
)

// SystemAdminRole builds the protected wildcard administrator role. Its
// activating claims live in configuration rather than the role row, so
// the row itself carries none.
func SystemAdminRole(now time.Time) (*approle.Role, error) {
	effective := approle.NewEffectivePermissions(
		[]string{approle.Wildcard},
		[]string{approle.Wildcard},
		approle.QuotaTierUnlimited,
	)
	return approle.ReconstructRole(
		constants.RoleIDSystemAdmin,
		"System Administrator",
		"Full access to every tool and model. Activated by configured admin claims.",
		nil,
		nil,
		[]string{approle.Wildcard},
		[]string{approle.Wildcard},
		effective,
		approle.QuotaTierUnlimited,
		constants.MaxRolePriority,
		true,
		true,
		now,
		now,
		"system",
	)
}

// DefaultRole builds the protected fallback role granted to subjects
// whose claims match nothing. Its grants come from configuration.
func DefaultRole(cfg *config.AppRoleConfig, now time.Time) (*approle.Role, error) {
	tier := approle.QuotaTier(cfg.DefaultRoleTier)
	effective := approle.NewEffectivePermissions(cfg.DefaultRoleTools, cfg.DefaultRoleModels, tier)
	return approle.ReconstructRole(
		constants.RoleIDDefault,
		"Default",
		"Fallback role for subjects with no matching claims.",
		nil,
		nil,
		cfg.DefaultRoleTools,
		cfg.DefaultRoleModels,
		effective,
		tier,
		constants.MinRolePriority,
		true,
		true,
		now,
		now,
		"system",
	)
}

// EnsureSystemRoles seeds the protected system_admin and default roles at
// startup when they are missing. Existing rows are left untouched so
// admin edits to display metadata survive restarts.
func EnsureSystemRoles(ctx context.Context, repo approle.RoleRepository, cfg *config.AppRoleConfig, log logger.Interface) error {
	now := time.Now()

	builders := []func() (*approle.Role, error){
		func() (*approle.Role, error) { return SystemAdminRole(now) },
		func() (*approle.Role, error) { return DefaultRole(cfg, now) },
	}

	for _, build := range builders {
		role, err := build()
		if err != nil {
			return fmt.Errorf("failed to build system role: %w", err)
		}

		existing, err := repo.GetByID(ctx, role.ID())
		if err != nil {
			return fmt.Errorf("failed to check system role %q: %w", role.ID(), err)
		}
		if existing != nil {
			continue
		}

		if err := repo.Create(ctx, role); err != nil {
			return fmt.Errorf("failed to seed system role %q: %w", role.ID(), err)
		}
		log.Infow("seeded system role", "role_id", role.ID())
	}

	return nil
}
