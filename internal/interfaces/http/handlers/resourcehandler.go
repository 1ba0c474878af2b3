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

// ResourceHandler exposes the resource-side view of grants: which roles
// allow a given tool or model, edited from either direction.
type ResourceHandler struct {
	syncService *approleApp.SyncService
	logger      logger.Interface
}

func NewResourceHandler(syncService *approleApp.SyncService, log logger.Interface) *ResourceHandler {
	return &ResourceHandler{
		syncService: syncService,
		logger:      log,
	}
}

// SetRoles replaces the set of roles directly granting the resource.
func (h *ResourceHandler) SetRoles(c *gin.Context) {
	kind := approle.ResourceKind(c.Param("kind"))
	resourceID := c.Param("id")

	var req dto.SetResourceRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.syncService.SetRolesForResource(c.Request.Context(), kind, resourceID, req.RoleIDs, middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Warnw("failed to set resource roles", "error", err,
			"resource_kind", kind.String(), "resource_id", resourceID)
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "resource roles updated", nil)
}

// GetRoles lists every role granting the resource, direct and inherited.
func (h *ResourceHandler) GetRoles(c *gin.Context) {
	kind := approle.ResourceKind(c.Param("kind"))
	resourceID := c.Param("id")

	grants, err := h.syncService.GetRolesGrantingResource(c.Request.Context(), kind, resourceID)
	if err != nil {
		h.logger.Warnw("failed to get resource roles", "error", err,
			"resource_kind", kind.String(), "resource_id", resourceID)
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "success", dto.NewResourceGrantResponses(grants))
}
