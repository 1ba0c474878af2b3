package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/persistence/models"
	"agentgate/internal/shared/constants"
	"agentgate/internal/shared/errors"
)

// AppRoleRepositoryImpl persists roles and their reverse-lookup indexes.
// Every write touches the role row and its index rows in one transaction
// so a partial failure cannot leave the indexes out of lockstep.
type AppRoleRepositoryImpl struct {
	db *gorm.DB
}

func NewAppRoleRepository(db *gorm.DB) approle.RoleRepository {
	return &AppRoleRepositoryImpl{db: db}
}

func (r *AppRoleRepositoryImpl) Create(ctx context.Context, role *approle.Role) error {
	model := toRoleModel(role)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if errors.IsDuplicateError(err) {
				return approle.ErrRoleExists
			}
			return fmt.Errorf("failed to create role: %w", err)
		}
		return r.insertIndexRows(tx, role)
	})
}

func (r *AppRoleRepositoryImpl) GetByID(ctx context.Context, id string) (*approle.Role, error) {
	var model models.RoleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return toDomainRole(&model)
}

func (r *AppRoleRepositoryImpl) GetByIDs(ctx context.Context, ids []string) ([]*approle.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var roleModels []*models.RoleModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roleModels).Error; err != nil {
		return nil, fmt.Errorf("failed to get roles by IDs: %w", err)
	}

	roles := make([]*approle.Role, 0, len(roleModels))
	for _, model := range roleModels {
		role, err := toDomainRole(model)
		if err != nil {
			return nil, fmt.Errorf("failed to reconstruct role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *AppRoleRepositoryImpl) List(ctx context.Context, filter approle.RoleFilter) ([]*approle.Role, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RoleModel{})

	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = constants.DefaultPage
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	offset := (page - 1) * pageSize
	query = query.Offset(offset).Limit(pageSize).Order("id")

	var roleModels []*models.RoleModel
	if err := query.Find(&roleModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}

	roles := make([]*approle.Role, 0, len(roleModels))
	for _, model := range roleModels {
		role, err := toDomainRole(model)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to reconstruct role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, total, nil
}

func (r *AppRoleRepositoryImpl) Update(ctx context.Context, role *approle.Role) error {
	model := toRoleModel(role)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RoleModel{}).
			Where("id = ?", role.ID()).
			Updates(map[string]interface{}{
				"name":             model.Name,
				"description":      model.Description,
				"claims":           model.Claims,
				"inherits_from":    model.InheritsFrom,
				"granted_tools":    model.GrantedTools,
				"granted_models":   model.GrantedModels,
				"effective_tools":  model.EffectiveTools,
				"effective_models": model.EffectiveModels,
				"quota_tier":       model.QuotaTier,
				"priority":         model.Priority,
				"enabled":          model.Enabled,
				"updated_by":       model.UpdatedBy,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update role: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return approle.ErrRoleNotFound
		}

		if err := r.deleteIndexRows(tx, role.ID()); err != nil {
			return err
		}
		return r.insertIndexRows(tx, role)
	})
}

func (r *AppRoleRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.RoleModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete role: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return approle.ErrRoleNotFound
		}
		return r.deleteIndexRows(tx, id)
	})
}

func (r *AppRoleRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoleModel{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role existence: %w", err)
	}
	return count > 0, nil
}

func (r *AppRoleRepositoryImpl) ListIDsByClaim(ctx context.Context, claim string) ([]string, error) {
	var roleIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.RoleClaimModel{}).
		Where("claim = ?", claim).
		Order("role_id").
		Pluck("role_id", &roleIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles by claim: %w", err)
	}
	return roleIDs, nil
}

func (r *AppRoleRepositoryImpl) ListIDsGrantingResource(ctx context.Context, kind approle.ResourceKind, resourceID string) ([]string, error) {
	var roleIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.RoleResourceModel{}).
		Where("resource_kind = ? AND resource_id = ?", kind.String(), resourceID).
		Order("role_id").
		Pluck("role_id", &roleIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles granting resource: %w", err)
	}
	return roleIDs, nil
}

// ListInheritingFrom scans role rows and filters on the JSON
// inherits_from list in memory. Role cardinality is small (tens, not
// thousands) and this keeps the query portable across MySQL and the
// SQLite used in tests.
func (r *AppRoleRepositoryImpl) ListInheritingFrom(ctx context.Context, roleID string) ([]*approle.Role, error) {
	var roleModels []*models.RoleModel
	if err := r.db.WithContext(ctx).Find(&roleModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	var dependents []*approle.Role
	for _, model := range roleModels {
		for _, parent := range model.InheritsFrom {
			if parent != roleID {
				continue
			}
			role, err := toDomainRole(model)
			if err != nil {
				return nil, fmt.Errorf("failed to reconstruct role: %w", err)
			}
			dependents = append(dependents, role)
			break
		}
	}
	return dependents, nil
}

func (r *AppRoleRepositoryImpl) insertIndexRows(tx *gorm.DB, role *approle.Role) error {
	for _, claim := range role.Claims() {
		row := &models.RoleClaimModel{Claim: claim, RoleID: role.ID()}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create claim index row: %w", err)
		}
	}
	for _, toolID := range role.GrantedTools() {
		row := &models.RoleResourceModel{
			ResourceKind: approle.ResourceKindTool.String(),
			ResourceID:   toolID,
			RoleID:       role.ID(),
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create tool index row: %w", err)
		}
	}
	for _, modelID := range role.GrantedModels() {
		row := &models.RoleResourceModel{
			ResourceKind: approle.ResourceKindModel.String(),
			ResourceID:   modelID,
			RoleID:       role.ID(),
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create model index row: %w", err)
		}
	}
	return nil
}

func (r *AppRoleRepositoryImpl) deleteIndexRows(tx *gorm.DB, roleID string) error {
	if err := tx.Where("role_id = ?", roleID).Delete(&models.RoleClaimModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete claim index rows: %w", err)
	}
	if err := tx.Where("role_id = ?", roleID).Delete(&models.RoleResourceModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete resource index rows: %w", err)
	}
	return nil
}

func toRoleModel(role *approle.Role) *models.RoleModel {
	effective := role.Effective()
	return &models.RoleModel{
		ID:              role.ID(),
		Name:            role.Name(),
		Description:     role.Description(),
		Claims:          datatypes.NewJSONSlice(role.Claims()),
		InheritsFrom:    datatypes.NewJSONSlice(role.InheritsFrom()),
		GrantedTools:    datatypes.NewJSONSlice(role.GrantedTools()),
		GrantedModels:   datatypes.NewJSONSlice(role.GrantedModels()),
		EffectiveTools:  datatypes.NewJSONSlice(effective.Tools),
		EffectiveModels: datatypes.NewJSONSlice(effective.Models),
		QuotaTier:       role.QuotaTier().String(),
		Priority:        role.Priority(),
		IsProtected:     role.IsProtected(),
		Enabled:         role.IsEnabled(),
		UpdatedBy:       role.UpdatedBy(),
		CreatedAt:       role.CreatedAt(),
		UpdatedAt:       role.UpdatedAt(),
	}
}

func toDomainRole(model *models.RoleModel) (*approle.Role, error) {
	tier := approle.QuotaTier(model.QuotaTier)
	effective := approle.NewEffectivePermissions(model.EffectiveTools, model.EffectiveModels, tier)

	return approle.ReconstructRole(
		model.ID,
		model.Name,
		model.Description,
		model.Claims,
		model.InheritsFrom,
		model.GrantedTools,
		model.GrantedModels,
		effective,
		tier,
		model.Priority,
		model.IsProtected,
		model.Enabled,
		model.CreatedAt,
		model.UpdatedAt,
		model.UpdatedBy,
	)
}
