package dto

import (
	"time"

	"agentgate/internal/domain/approle"
	"agentgate/internal/shared/constants"
)

type CreateRoleRequest struct {
	ID            string   `json:"id" binding:"required,role_id"`
	Name          string   `json:"name" binding:"required,max=100"`
	Description   string   `json:"description"`
	Claims        []string `json:"claims" binding:"omitempty,dive,required"`
	InheritsFrom  []string `json:"inherits_from" binding:"omitempty,dive,role_id"`
	GrantedTools  []string `json:"granted_tools"`
	GrantedModels []string `json:"granted_models"`
	QuotaTier     string   `json:"quota_tier"`
	Priority      int      `json:"priority" binding:"min=0,max=1000"`
}

type UpdateRoleRequest struct {
	Name          *string   `json:"name" binding:"omitempty,max=100"`
	Description   *string   `json:"description"`
	Claims        *[]string `json:"claims" binding:"omitempty,dive,required"`
	InheritsFrom  *[]string `json:"inherits_from" binding:"omitempty,dive,role_id"`
	GrantedTools  *[]string `json:"granted_tools"`
	GrantedModels *[]string `json:"granted_models"`
	QuotaTier     *string   `json:"quota_tier"`
	Priority      *int      `json:"priority" binding:"omitempty,min=0,max=1000"`
	Enabled       *bool     `json:"enabled"`
}

type ListRolesQuery struct {
	Enabled  *bool `form:"enabled"`
	Page     int   `form:"page"`
	PageSize int   `form:"page_size"`
}

func (q *ListRolesQuery) ToFilter() approle.RoleFilter {
	page := q.Page
	if page < 1 {
		page = constants.DefaultPage
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return approle.RoleFilter{
		Enabled:  q.Enabled,
		Page:     page,
		PageSize: pageSize,
	}
}

type RoleResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Claims          []string  `json:"claims"`
	InheritsFrom    []string  `json:"inherits_from"`
	GrantedTools    []string  `json:"granted_tools"`
	GrantedModels   []string  `json:"granted_models"`
	EffectiveTools  []string  `json:"effective_tools"`
	EffectiveModels []string  `json:"effective_models"`
	QuotaTier       string    `json:"quota_tier"`
	Priority        int       `json:"priority"`
	IsProtected     bool      `json:"is_protected"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
}

func NewRoleResponse(role *approle.Role) RoleResponse {
	effective := role.Effective()
	return RoleResponse{
		ID:              role.ID(),
		Name:            role.Name(),
		Description:     role.Description(),
		Claims:          role.Claims(),
		InheritsFrom:    role.InheritsFrom(),
		GrantedTools:    role.GrantedTools(),
		GrantedModels:   role.GrantedModels(),
		EffectiveTools:  effective.Tools,
		EffectiveModels: effective.Models,
		QuotaTier:       role.QuotaTier().String(),
		Priority:        role.Priority(),
		IsProtected:     role.IsProtected(),
		Enabled:         role.IsEnabled(),
		CreatedAt:       role.CreatedAt(),
		UpdatedAt:       role.UpdatedAt(),
		UpdatedBy:       role.UpdatedBy(),
	}
}

type ListRolesResponse struct {
	Roles    []RoleResponse `json:"roles"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type PermissionsResponse struct {
	SubjectID  string    `json:"subject_id"`
	RoleIDs    []string  `json:"role_ids"`
	Tools      []string  `json:"tools"`
	Models     []string  `json:"models"`
	QuotaTier  string    `json:"quota_tier"`
	ComputedAt time.Time `json:"computed_at"`
}

func NewPermissionsResponse(perms *approle.UserEffectivePermissions) PermissionsResponse {
	return PermissionsResponse{
		SubjectID:  perms.SubjectID,
		RoleIDs:    perms.RoleIDs,
		Tools:      perms.Tools,
		Models:     perms.Models,
		QuotaTier:  perms.Tier.String(),
		ComputedAt: perms.ComputedAt,
	}
}

type AccessCheckResponse struct {
	ResourceKind string `json:"resource_kind"`
	ResourceID   string `json:"resource_id"`
	Allowed      bool   `json:"allowed"`
}

type SetResourceRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"omitempty,dive,role_id"`
}

type ResourceGrantResponse struct {
	RoleID string `json:"role_id"`
	Source string `json:"source"`
	Via    string `json:"via,omitempty"`
}

func NewResourceGrantResponses(grants []approle.ResourceGrant) []ResourceGrantResponse {
	out := make([]ResourceGrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, ResourceGrantResponse{
			RoleID: g.RoleID,
			Source: string(g.Source),
			Via:    g.Via,
		})
	}
	return out
}
