package approle

import (
	"context"
	"errors"
	"fmt"

	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/cache"
	apperrors "agentgate/internal/shared/errors"
	"agentgate/internal/shared/logger"
)

// CreateRoleCommand carries the fields of a new role.
type CreateRoleCommand struct {
	ID            string
	Name          string
	Description   string
	Claims        []string
	InheritsFrom  []string
	GrantedTools  []string
	GrantedModels []string
	QuotaTier     string
	Priority      int
}

// UpdateRoleCommand carries partial role edits. Nil fields are left
// unchanged.
type UpdateRoleCommand struct {
	Name          *string
	Description   *string
	Claims        *[]string
	InheritsFrom  *[]string
	GrantedTools  *[]string
	GrantedModels *[]string
	QuotaTier     *string
	Priority      *int
	Enabled       *bool
}

// AdminService handles role writes: validation, effective-permission
// recompute, transactional persistence with index-row deltas, transitive
// fan-out recompute of dependent roles, and cache invalidation. Every
// grant mutation, whether it arrives from the role-edit path or the
// resource-edit path, routes through the same save pipeline so the two
// entry points cannot diverge.
type AdminService struct {
	repo   approle.RoleRepository
	cache  *cache.PermissionCache
	logger logger.Interface
}

func NewAdminService(repo approle.RoleRepository, permCache *cache.PermissionCache, log logger.Interface) *AdminService {
	return &AdminService{
		repo:   repo,
		cache:  permCache,
		logger: log,
	}
}

func (s *AdminService) CreateRole(ctx context.Context, cmd CreateRoleCommand, actor string) (*approle.Role, error) {
	role, err := approle.NewRole(cmd.ID, cmd.Name, cmd.Description)
	if err != nil {
		return nil, mapDomainError(err)
	}

	exists, err := s.repo.Exists(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check role existence: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError("role already exists", cmd.ID)
	}

	if err := role.SetClaims(cmd.Claims); err != nil {
		return nil, mapDomainError(err)
	}
	if err := role.SetInheritsFrom(cmd.InheritsFrom); err != nil {
		return nil, mapDomainError(err)
	}
	if err := role.SetGrants(approle.ResourceKindTool, cmd.GrantedTools); err != nil {
		return nil, mapDomainError(err)
	}
	if err := role.SetGrants(approle.ResourceKindModel, cmd.GrantedModels); err != nil {
		return nil, mapDomainError(err)
	}
	if err := role.SetQuotaTier(approle.QuotaTier(cmd.QuotaTier)); err != nil {
		return nil, mapDomainError(err)
	}
	if err := role.SetPriority(cmd.Priority); err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.recomputeEffective(ctx, role); err != nil {
		return nil, err
	}
	role.Touch(actor)

	if err := s.repo.Create(ctx, role); err != nil {
		if errors.Is(err, approle.ErrRoleExists) {
			return nil, apperrors.NewConflictError("role already exists", cmd.ID)
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.invalidate(role.ID(), role.Claims())
	if err := s.fanOutRecompute(ctx, role.ID(), map[string]bool{}); err != nil {
		return nil, err
	}

	s.logger.Infow("role created", "role_id", role.ID(), "actor", actor)
	return role, nil
}

func (s *AdminService) UpdateRole(ctx context.Context, roleID string, cmd UpdateRoleCommand, actor string) (*approle.Role, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return nil, apperrors.NewNotFoundError("role not found", roleID)
	}

	oldClaims := role.Claims()

	if cmd.Name != nil || cmd.Description != nil {
		name := role.Name()
		description := role.Description()
		if cmd.Name != nil {
			name = *cmd.Name
		}
		if cmd.Description != nil {
			description = *cmd.Description
		}
		if err := role.UpdateDisplay(name, description); err != nil {
			return nil, mapDomainError(err)
		}
	}

	if cmd.Claims != nil {
		if err := role.SetClaims(*cmd.Claims); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.InheritsFrom != nil {
		if err := role.SetInheritsFrom(*cmd.InheritsFrom); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.GrantedTools != nil {
		if err := role.SetGrants(approle.ResourceKindTool, *cmd.GrantedTools); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.GrantedModels != nil {
		if err := role.SetGrants(approle.ResourceKindModel, *cmd.GrantedModels); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.QuotaTier != nil {
		if err := role.SetQuotaTier(approle.QuotaTier(*cmd.QuotaTier)); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.Priority != nil {
		if err := role.SetPriority(*cmd.Priority); err != nil {
			return nil, mapDomainError(err)
		}
	}
	if cmd.Enabled != nil {
		if *cmd.Enabled {
			err = role.Enable()
		} else {
			err = role.Disable()
		}
		if err != nil {
			return nil, mapDomainError(err)
		}
	}

	if err := s.saveRole(ctx, role, oldClaims, actor); err != nil {
		return nil, err
	}

	s.logger.Infow("role updated", "role_id", role.ID(), "actor", actor)
	return role, nil
}

func (s *AdminService) DeleteRole(ctx context.Context, roleID string, actor string) error {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return apperrors.NewNotFoundError("role not found", roleID)
	}
	if role.IsProtected() {
		return apperrors.NewValidationError("protected role cannot be deleted", roleID)
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		if errors.Is(err, approle.ErrRoleNotFound) {
			return apperrors.NewNotFoundError("role not found", roleID)
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.invalidate(roleID, role.Claims())

	// Dependents now hold a dangling inheritsFrom entry; recompute them
	// so the deleted role's grants stop flowing through.
	if err := s.fanOutRecompute(ctx, roleID, map[string]bool{}); err != nil {
		return err
	}

	s.logger.Infow("role deleted", "role_id", roleID, "actor", actor)
	return nil
}

func (s *AdminService) GetRole(ctx context.Context, roleID string) (*approle.Role, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return nil, apperrors.NewNotFoundError("role not found", roleID)
	}
	return role, nil
}

func (s *AdminService) ListRoles(ctx context.Context, filter approle.RoleFilter) ([]*approle.Role, int64, error) {
	return s.repo.List(ctx, filter)
}

// MutateGrant adds or removes a single direct grant on a role and runs
// the full save pipeline: recompute, persist, fan-out, invalidate. This
// is the shared primitive behind both role-side and resource-side edits.
func (s *AdminService) MutateGrant(ctx context.Context, roleID string, kind approle.ResourceKind, resourceID string, add bool, actor string) error {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return apperrors.NewNotFoundError("role not found", roleID)
	}

	if add {
		err = role.Grant(kind, resourceID)
	} else {
		err = role.Revoke(kind, resourceID)
	}
	if err != nil {
		return mapDomainError(err)
	}

	return s.saveRole(ctx, role, role.Claims(), actor)
}

// InvalidateRole flushes the role's cache entry and the whole subject
// map.
func (s *AdminService) InvalidateRole(roleID string) {
	s.cache.InvalidateRole(roleID)
}

// InvalidateCache clears all three cache maps.
func (s *AdminService) InvalidateCache() {
	s.cache.InvalidateAll()
}

// CacheStats reports live and expired entry counts per cache map.
func (s *AdminService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// saveRole runs the write pipeline shared by every mutation path:
// effective-permission recompute, persist, cache invalidation for the
// role plus any claims that changed, and transitive dependent recompute.
func (s *AdminService) saveRole(ctx context.Context, role *approle.Role, oldClaims []string, actor string) error {
	if err := s.recomputeEffective(ctx, role); err != nil {
		return err
	}
	role.Touch(actor)

	if err := s.repo.Update(ctx, role); err != nil {
		if errors.Is(err, approle.ErrRoleNotFound) {
			return apperrors.NewNotFoundError("role not found", role.ID())
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.invalidate(role.ID(), append(oldClaims, role.Claims()...))
	return s.fanOutRecompute(ctx, role.ID(), map[string]bool{})
}

// recomputeEffective flattens the role's effective permissions from its
// direct grants plus the effective sets of its inherited roles. Dangling
// or disabled inheritsFrom entries are dropped with a warning, never
// fatal: inheritance degrades gracefully rather than blocking a save.
func (s *AdminService) recomputeEffective(ctx context.Context, role *approle.Role) error {
	parents := role.InheritsFrom()

	var inherited []approle.EffectivePermissions
	if len(parents) > 0 {
		parentRoles, err := s.repo.GetByIDs(ctx, parents)
		if err != nil {
			return fmt.Errorf("failed to load inherited roles: %w", err)
		}

		byID := make(map[string]*approle.Role, len(parentRoles))
		for _, parent := range parentRoles {
			byID[parent.ID()] = parent
		}

		for _, parentID := range parents {
			parent, ok := byID[parentID]
			if !ok {
				s.logger.Warnw("inherited role not found, dropping from resolution",
					"role_id", role.ID(), "inherits_from", parentID)
				continue
			}
			if !parent.IsEnabled() {
				s.logger.Warnw("inherited role disabled, dropping from resolution",
					"role_id", role.ID(), "inherits_from", parentID)
				continue
			}
			inherited = append(inherited, parent.Effective())
		}
	}

	role.SetEffective(approle.Recompute(role, inherited))
	return nil
}

// fanOutRecompute recomputes every role that inherits from the changed
// role, cascading transitively until effective permissions stop
// changing. The visited set guards against inheritance cycles.
func (s *AdminService) fanOutRecompute(ctx context.Context, roleID string, visited map[string]bool) error {
	if visited[roleID] {
		return nil
	}
	visited[roleID] = true

	dependents, err := s.repo.ListInheritingFrom(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to list dependent roles: %w", err)
	}

	for _, dependent := range dependents {
		before := dependent.Effective()
		if err := s.recomputeEffective(ctx, dependent); err != nil {
			return err
		}
		if before.Equal(dependent.Effective()) {
			continue
		}

		if err := s.repo.Update(ctx, dependent); err != nil {
			return fmt.Errorf("failed to persist dependent role %q: %w", dependent.ID(), err)
		}
		s.cache.InvalidateRole(dependent.ID())

		if err := s.fanOutRecompute(ctx, dependent.ID(), visited); err != nil {
			return err
		}
	}

	return nil
}

func (s *AdminService) invalidate(roleID string, claims []string) {
	s.cache.InvalidateRole(roleID)
	for _, claim := range claims {
		s.cache.InvalidateClaim(claim)
	}
}

// mapDomainError translates domain sentinels into the application error
// taxonomy so the HTTP layer can render a specific status.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, approle.ErrProtectedRole):
		return apperrors.NewValidationError("protected role fields cannot be modified")
	case errors.Is(err, approle.ErrRoleNotFound):
		return apperrors.NewNotFoundError("role not found")
	case errors.Is(err, approle.ErrRoleExists):
		return apperrors.NewConflictError("role already exists")
	case errors.Is(err, approle.ErrInvalidRoleID),
		errors.Is(err, approle.ErrSelfInheritance),
		errors.Is(err, approle.ErrInvalidResourceKind),
		errors.Is(err, approle.ErrPriorityOutOfRange):
		return apperrors.NewValidationError(err.Error())
	default:
		return apperrors.NewValidationError(err.Error())
	}
}
