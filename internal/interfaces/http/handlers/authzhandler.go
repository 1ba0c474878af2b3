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

// AuthzHandler exposes the request-time authorization surface: resolved
// permissions, accessible tool/model sets, and membership checks.
type AuthzHandler struct {
	authzService *approleApp.AuthorizationService
	logger       logger.Interface
}

func NewAuthzHandler(authzService *approleApp.AuthorizationService, log logger.Interface) *AuthzHandler {
	return &AuthzHandler{
		authzService: authzService,
		logger:       log,
	}
}

// GetPermissions returns the caller's merged effective permissions.
func (h *AuthzHandler) GetPermissions(c *gin.Context) {
	subjectID := middleware.GetSubjectID(c)
	claims := middleware.GetClaims(c)

	perms, err := h.authzService.ResolvePermissions(c.Request.Context(), subjectID, claims)
	if err != nil {
		h.logger.Errorw("failed to resolve permissions", "error", err, "subject_id", subjectID)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "success", dto.NewPermissionsResponse(perms))
}

// GetAccessibleTools returns the caller's merged tool set.
func (h *AuthzHandler) GetAccessibleTools(c *gin.Context) {
	subjectID := middleware.GetSubjectID(c)
	claims := middleware.GetClaims(c)

	tools, err := h.authzService.GetAccessibleTools(c.Request.Context(), subjectID, claims)
	if err != nil {
		h.logger.Errorw("failed to get accessible tools", "error", err, "subject_id", subjectID)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "success", gin.H{"tools": tools})
}

// GetAccessibleModels returns the caller's merged model set.
func (h *AuthzHandler) GetAccessibleModels(c *gin.Context) {
	subjectID := middleware.GetSubjectID(c)
	claims := middleware.GetClaims(c)

	models, err := h.authzService.GetAccessibleModels(c.Request.Context(), subjectID, claims)
	if err != nil {
		h.logger.Errorw("failed to get accessible models", "error", err, "subject_id", subjectID)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "success", gin.H{"models": models})
}

// CheckTool reports whether the caller may reference the tool.
func (h *AuthzHandler) CheckTool(c *gin.Context) {
	h.check(c, approle.ResourceKindTool)
}

// CheckModel reports whether the caller may reference the model.
func (h *AuthzHandler) CheckModel(c *gin.Context) {
	h.check(c, approle.ResourceKindModel)
}

func (h *AuthzHandler) check(c *gin.Context, kind approle.ResourceKind) {
	subjectID := middleware.GetSubjectID(c)
	claims := middleware.GetClaims(c)
	resourceID := c.Param("id")
	if resourceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "resource ID is required")
		return
	}

	var allowed bool
	var err error
	if kind == approle.ResourceKindModel {
		allowed, err = h.authzService.CanAccessModel(c.Request.Context(), subjectID, claims, resourceID)
	} else {
		allowed, err = h.authzService.CanAccessTool(c.Request.Context(), subjectID, claims, resourceID)
	}
	if err != nil {
		// Denied, not errored: authorization fails closed and the caller
		// cannot distinguish a transient failure from a true denial.
		h.logger.Errorw("access check failed, denying", "error", err,
			"subject_id", subjectID, "resource_kind", kind.String(), "resource_id", resourceID)
	}

	utils.SuccessResponse(c, http.StatusOK, "success", dto.AccessCheckResponse{
		ResourceKind: kind.String(),
		ResourceID:   resourceID,
		Allowed:      allowed,
	})
}
