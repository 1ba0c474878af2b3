package approle

import (
	"context"
	"fmt"

	"agentgate/internal/domain/approle"
	"agentgate/internal/shared/constants"
	apperrors "agentgate/internal/shared/errors"
	"agentgate/internal/shared/logger"
	"agentgate/internal/shared/utils/setutil"
)

// SyncService keeps "role grants resource X" and "resource X is granted
// by roles [...]" consistent no matter which side an admin edits.
// Resource-side edits are translated into per-role grant mutations that
// run through the AdminService's save pipeline, so both entry points
// share one code path.
type SyncService struct {
	repo   approle.RoleRepository
	admin  *AdminService
	logger logger.Interface
}

func NewSyncService(repo approle.RoleRepository, admin *AdminService, log logger.Interface) *SyncService {
	return &SyncService{
		repo:   repo,
		admin:  admin,
		logger: log,
	}
}

// SetRolesForResource replaces the set of roles directly granting a
// resource. It diffs against the current direct grantors and applies one
// grant mutation per affected role.
func (s *SyncService) SetRolesForResource(ctx context.Context, kind approle.ResourceKind, resourceID string, roleIDs []string, actor string) error {
	if !kind.IsValid() {
		return apperrors.NewValidationError("invalid resource kind", kind.String())
	}
	if resourceID == "" {
		return apperrors.NewValidationError("resource ID is required")
	}

	desired := setutil.NewStringSetFrom(roleIDs)
	for _, roleID := range desired.ToSortedSlice() {
		role, err := s.repo.GetByID(ctx, roleID)
		if err != nil {
			return fmt.Errorf("failed to load role: %w", err)
		}
		if role == nil {
			return apperrors.NewNotFoundError("role not found", roleID)
		}
		if role.IsProtected() {
			return apperrors.NewValidationError("protected role grants cannot be modified", roleID)
		}
	}

	currentIDs, err := s.repo.ListIDsGrantingResource(ctx, kind, resourceID)
	if err != nil {
		return fmt.Errorf("failed to list current grantors: %w", err)
	}
	current := setutil.NewStringSetFrom(currentIDs)

	// Removals touch current grantors too; check them before the first
	// write so a protected grantor rejects the edit with nothing applied.
	for _, roleID := range current.ToSortedSlice() {
		if desired.Has(roleID) {
			continue
		}
		role, err := s.repo.GetByID(ctx, roleID)
		if err != nil {
			return fmt.Errorf("failed to load role: %w", err)
		}
		if role != nil && role.IsProtected() {
			return apperrors.NewValidationError("protected role grants cannot be modified", roleID)
		}
	}

	for _, roleID := range current.ToSortedSlice() {
		if desired.Has(roleID) {
			continue
		}
		if err := s.admin.MutateGrant(ctx, roleID, kind, resourceID, false, actor); err != nil {
			return err
		}
	}

	for _, roleID := range desired.ToSortedSlice() {
		if current.Has(roleID) {
			continue
		}
		if err := s.admin.MutateGrant(ctx, roleID, kind, resourceID, true, actor); err != nil {
			return err
		}
	}

	s.logger.Infow("resource grantors updated",
		"resource_kind", kind.String(),
		"resource_id", resourceID,
		"roles", desired.ToSortedSlice(),
		"actor", actor)
	return nil
}

// GetRolesGrantingResource lists every role granting the resource:
// direct grantors from the reverse index, plus roles that receive the
// resource through an inherited parent's effective set, each annotated
// with the contributing parent.
func (s *SyncService) GetRolesGrantingResource(ctx context.Context, kind approle.ResourceKind, resourceID string) ([]approle.ResourceGrant, error) {
	if !kind.IsValid() {
		return nil, apperrors.NewValidationError("invalid resource kind", kind.String())
	}

	directIDs, err := s.repo.ListIDsGrantingResource(ctx, kind, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct grantors: %w", err)
	}
	direct := setutil.NewStringSetFrom(directIDs)

	grants := make([]approle.ResourceGrant, 0, len(directIDs))
	for _, roleID := range directIDs {
		grants = append(grants, approle.ResourceGrant{
			RoleID: roleID,
			Source: approle.GrantSourceDirect,
		})
	}

	allRoles, err := s.listAllRoles(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*approle.Role, len(allRoles))
	for _, role := range allRoles {
		byID[role.ID()] = role
	}

	for _, role := range allRoles {
		if direct.Has(role.ID()) {
			continue
		}
		for _, parentID := range role.InheritsFrom() {
			parent, ok := byID[parentID]
			if !ok || !parent.IsEnabled() {
				continue
			}
			if !effectiveContains(parent.Effective(), kind, resourceID) {
				continue
			}
			grants = append(grants, approle.ResourceGrant{
				RoleID: role.ID(),
				Source: approle.GrantSourceInherited,
				Via:    parentID,
			})
		}
	}

	return grants, nil
}

func (s *SyncService) listAllRoles(ctx context.Context) ([]*approle.Role, error) {
	var all []*approle.Role
	page := 1
	for {
		roles, total, err := s.repo.List(ctx, approle.RoleFilter{Page: page, PageSize: constants.MaxPageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to list roles: %w", err)
		}
		all = append(all, roles...)
		if int64(len(all)) >= total || len(roles) == 0 {
			return all, nil
		}
		page++
	}
}

func effectiveContains(effective approle.EffectivePermissions, kind approle.ResourceKind, resourceID string) bool {
	if kind == approle.ResourceKindModel {
		return effective.HasModel(resourceID)
	}
	return effective.HasTool(resourceID)
}
