// Package approle contains the application services of the permission
// engine: request-time authorization resolution, administrative role
// management, and bidirectional role/resource grant synchronization.
package approle

import (
	"context"
	"fmt"
	"time"

	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/cache"
	"agentgate/internal/shared/config"
	"agentgate/internal/shared/constants"
	"agentgate/internal/shared/logger"
	"agentgate/internal/shared/utils/setutil"
)

// AuthorizationService is the request-time entry point. It resolves a
// subject's identity claims into merged effective permissions, consulting
// the cache before the repository. Repository failure with no cached
// value fails closed: the caller gets an error, never an open grant.
type AuthorizationService struct {
	repo   approle.RoleRepository
	cache  *cache.PermissionCache
	cfg    *config.AppRoleConfig
	logger logger.Interface
	nowFn  func() time.Time
}

func NewAuthorizationService(
	repo approle.RoleRepository,
	permCache *cache.PermissionCache,
	cfg *config.AppRoleConfig,
	log logger.Interface,
) *AuthorizationService {
	return &AuthorizationService{
		repo:   repo,
		cache:  permCache,
		cfg:    cfg,
		logger: log,
		nowFn:  time.Now,
	}
}

// ResolvePermissions turns a subject's claim set into an immutable merged
// permission snapshot. Results are cached per subject; a hit skips the
// repository entirely.
func (s *AuthorizationService) ResolvePermissions(ctx context.Context, subjectID string, claims []string) (*approle.UserEffectivePermissions, error) {
	if perms, ok := s.cache.GetSubject(subjectID); ok {
		return perms, nil
	}

	roleIDs, err := s.resolveRoleIDs(ctx, claims)
	if err != nil {
		return nil, err
	}

	adminRequested := s.hasAdminClaim(claims)
	if adminRequested {
		roleIDs.Add(constants.RoleIDSystemAdmin)
	}

	matched, err := s.loadEnabledRoles(ctx, roleIDs.ToSortedSlice(), adminRequested)
	if err != nil {
		return nil, err
	}

	if len(matched) == 0 {
		fallback, err := s.loadDefaultRole(ctx)
		if err != nil {
			return nil, err
		}
		if fallback != nil {
			matched = append(matched, fallback)
		}
	}

	perms := approle.MergeRoles(subjectID, matched, s.nowFn())
	s.cache.SetSubject(subjectID, perms)
	return perms, nil
}

// CanAccessTool reports whether the subject may reference the tool.
// Resolution failure denies access.
func (s *AuthorizationService) CanAccessTool(ctx context.Context, subjectID string, claims []string, toolID string) (bool, error) {
	perms, err := s.ResolvePermissions(ctx, subjectID, claims)
	if err != nil {
		return false, err
	}
	return perms.CanAccessTool(toolID), nil
}

// CanAccessModel reports whether the subject may reference the model.
// Resolution failure denies access.
func (s *AuthorizationService) CanAccessModel(ctx context.Context, subjectID string, claims []string, modelID string) (bool, error) {
	perms, err := s.ResolvePermissions(ctx, subjectID, claims)
	if err != nil {
		return false, err
	}
	return perms.CanAccessModel(modelID), nil
}

// GetAccessibleTools returns the subject's merged tool set.
func (s *AuthorizationService) GetAccessibleTools(ctx context.Context, subjectID string, claims []string) ([]string, error) {
	perms, err := s.ResolvePermissions(ctx, subjectID, claims)
	if err != nil {
		return nil, err
	}
	return perms.Tools, nil
}

// GetAccessibleModels returns the subject's merged model set.
func (s *AuthorizationService) GetAccessibleModels(ctx context.Context, subjectID string, claims []string) ([]string, error) {
	perms, err := s.ResolvePermissions(ctx, subjectID, claims)
	if err != nil {
		return nil, err
	}
	return perms.Models, nil
}

// resolveRoleIDs maps each claim to its role ids, consulting the claim
// cache first. Empty results are cached too so unknown claims do not hit
// the repository on every request.
func (s *AuthorizationService) resolveRoleIDs(ctx context.Context, claims []string) (*setutil.StringSet, error) {
	roleIDs := setutil.NewStringSet()

	for _, claim := range claims {
		if claim == "" {
			continue
		}

		if cached, ok := s.cache.GetClaimRoles(claim); ok {
			roleIDs.AddAll(cached)
			continue
		}

		ids, err := s.repo.ListIDsByClaim(ctx, claim)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve claim %q: %w", claim, err)
		}
		s.cache.SetClaimRoles(claim, ids)
		roleIDs.AddAll(ids)
	}

	return roleIDs, nil
}

func (s *AuthorizationService) hasAdminClaim(claims []string) bool {
	for _, claim := range claims {
		for _, adminClaim := range s.cfg.AdminClaims {
			if claim == adminClaim {
				return true
			}
		}
	}
	return false
}

// loadEnabledRoles fetches role definitions through the role cache and
// drops disabled or missing entries. A missing or broken system_admin row
// is replaced by a hardcoded wildcard snapshot when an admin claim asked
// for it, so a damaged role table cannot lock administrators out.
func (s *AuthorizationService) loadEnabledRoles(ctx context.Context, roleIDs []string, adminRequested bool) ([]*approle.Role, error) {
	roles := make([]*approle.Role, 0, len(roleIDs))

	for _, id := range roleIDs {
		role, err := s.loadRole(ctx, id)
		if id == constants.RoleIDSystemAdmin && adminRequested && (err != nil || role == nil) {
			s.logger.Warnw("system admin role unavailable, using fallback snapshot",
				"role_id", id, "error", err)
			fallback, fbErr := SystemAdminRole(s.nowFn())
			if fbErr != nil {
				return nil, fbErr
			}
			roles = append(roles, fallback)
			continue
		}
		if err != nil {
			return nil, err
		}
		if role == nil {
			s.logger.Warnw("role referenced by claim index not found", "role_id", id)
			continue
		}
		if !role.IsEnabled() {
			continue
		}
		roles = append(roles, role)
	}

	return roles, nil
}

func (s *AuthorizationService) loadRole(ctx context.Context, id string) (*approle.Role, error) {
	if role, ok := s.cache.GetRole(id); ok {
		return role, nil
	}

	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load role %q: %w", id, err)
	}
	if role != nil {
		s.cache.SetRole(role)
	}
	return role, nil
}

// loadDefaultRole returns the protected fallback role, or nil when it is
// missing or disabled. A subject with zero recognized claims receives the
// default role's permissions rather than an empty set.
func (s *AuthorizationService) loadDefaultRole(ctx context.Context) (*approle.Role, error) {
	role, err := s.loadRole(ctx, constants.RoleIDDefault)
	if err != nil {
		return nil, err
	}
	if role == nil {
		s.logger.Warnw("default role missing, subject resolves to empty permissions")
		return nil, nil
	}
	if !role.IsEnabled() {
		return nil, nil
	}
	return role, nil
}
