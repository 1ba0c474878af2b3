package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	approleApp "agentgate/internal/application/approle"
	"agentgate/internal/domain/approle"
	"agentgate/internal/interfaces/dto"
	"agentgate/internal/interfaces/http/middleware"
	"agentgate/internal/shared/logger"
	"agentgate/internal/shared/utils"
)

// RoleAdminHandler exposes role CRUD and cache maintenance to
// administrators.
type RoleAdminHandler struct {
	adminService *approleApp.AdminService
	logger       logger.Interface
}

func NewRoleAdminHandler(adminService *approleApp.AdminService, log logger.Interface) *RoleAdminHandler {
	return &RoleAdminHandler{
		adminService: adminService,
		logger:       log,
	}
}

func (h *RoleAdminHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cmd := approleApp.CreateRoleCommand{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		Claims:        req.Claims,
		InheritsFrom:  req.InheritsFrom,
		GrantedTools:  req.GrantedTools,
		GrantedModels: req.GrantedModels,
		QuotaTier:     req.QuotaTier,
		Priority:      req.Priority,
	}

	role, err := h.adminService.CreateRole(c.Request.Context(), cmd, middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Warnw("failed to create role", "error", err, "role_id", req.ID)
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "role created", dto.NewRoleResponse(role))
}

func (h *RoleAdminHandler) GetRole(c *gin.Context) {
	role, err := h.adminService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "success", dto.NewRoleResponse(role))
}

func (h *RoleAdminHandler) ListRoles(c *gin.Context) {
	var query dto.ListRolesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	filter := query.ToFilter()
	roles, total, err := h.adminService.ListRoles(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorw("failed to list roles", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to list roles")
		return
	}

	responses := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		responses = append(responses, dto.NewRoleResponse(role))
	}

	utils.SuccessResponse(c, http.StatusOK, "success", dto.ListRolesResponse{
		Roles:    responses,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (h *RoleAdminHandler) UpdateRole(c *gin.Context) {
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cmd := approleApp.UpdateRoleCommand{
		Name:          req.Name,
		Description:   req.Description,
		Claims:        req.Claims,
		InheritsFrom:  req.InheritsFrom,
		GrantedTools:  req.GrantedTools,
		GrantedModels: req.GrantedModels,
		QuotaTier:     req.QuotaTier,
		Priority:      req.Priority,
		Enabled:       req.Enabled,
	}

	role, err := h.adminService.UpdateRole(c.Request.Context(), c.Param("id"), cmd, middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Warnw("failed to update role", "error", err, "role_id", c.Param("id"))
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "role updated", dto.NewRoleResponse(role))
}

func (h *RoleAdminHandler) DeleteRole(c *gin.Context) {
	roleID := c.Param("id")
	if err := h.adminService.DeleteRole(c.Request.Context(), roleID, middleware.GetSubjectID(c)); err != nil {
		h.logger.Warnw("failed to delete role", "error", err, "role_id", roleID)
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "role deleted", nil)
}

// InvalidateCache flushes cache entries. With a role_id query parameter
// only that role (plus the whole subject map) is flushed; without one,
// everything.
func (h *RoleAdminHandler) InvalidateCache(c *gin.Context) {
	if roleID := c.Query("role_id"); roleID != "" {
		if !approle.IsValidRoleID(roleID) {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid role ID")
			return
		}
		h.adminService.InvalidateRole(roleID)
		utils.SuccessResponse(c, http.StatusOK, "role cache invalidated", nil)
		return
	}

	h.adminService.InvalidateCache()
	utils.SuccessResponse(c, http.StatusOK, "cache invalidated", nil)
}

func (h *RoleAdminHandler) GetCacheStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "success", h.adminService.CacheStats())
}
