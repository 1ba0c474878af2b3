// Package http wires the gin router: middleware, validators, and the
// authorization and admin route groups.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	approleApp "agentgate/internal/application/approle"
	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/config"
	"agentgate/internal/interfaces/http/handlers"
	"agentgate/internal/interfaces/http/middleware"
	"agentgate/internal/shared/logger"
	"agentgate/internal/shared/utils"
)

// Services carries the application services the router exposes.
type Services struct {
	Authz *approleApp.AuthorizationService
	Admin *approleApp.AdminService
	Sync  *approleApp.SyncService
}

type Router struct {
	engine *gin.Engine
	logger logger.Interface
}

func NewRouter(cfg *config.Config, services Services, log logger.Interface) *Router {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidations()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	claimsMw := middleware.NewClaimsMiddleware(&cfg.Auth.JWT, &cfg.AppRole, log)

	authzHandler := handlers.NewAuthzHandler(services.Authz, log)
	roleHandler := handlers.NewRoleAdminHandler(services.Admin, log)
	resourceHandler := handlers.NewResourceHandler(services.Sync, log)

	engine.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "ok", nil)
	})

	api := engine.Group("/api")

	authz := api.Group("/authz", claimsMw.ExtractClaims())
	{
		authz.GET("/permissions", authzHandler.GetPermissions)
		authz.GET("/tools", authzHandler.GetAccessibleTools)
		authz.GET("/models", authzHandler.GetAccessibleModels)
		authz.GET("/tools/:id/check", authzHandler.CheckTool)
		authz.GET("/models/:id/check", authzHandler.CheckModel)
	}

	admin := api.Group("/admin", claimsMw.ExtractClaims(), claimsMw.RequireAdmin())
	{
		admin.POST("/roles", roleHandler.CreateRole)
		admin.GET("/roles", roleHandler.ListRoles)
		admin.GET("/roles/:id", roleHandler.GetRole)
		admin.PUT("/roles/:id", roleHandler.UpdateRole)
		admin.DELETE("/roles/:id", roleHandler.DeleteRole)

		admin.GET("/resources/:kind/:id/roles", resourceHandler.GetRoles)
		admin.PUT("/resources/:kind/:id/roles", resourceHandler.SetRoles)

		admin.POST("/cache/invalidate", roleHandler.InvalidateCache)
		admin.GET("/cache/stats", roleHandler.GetCacheStats)
	}

	return &Router{engine: engine, logger: log}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("role_id", func(fl validator.FieldLevel) bool {
			return approle.IsValidRoleID(fl.Field().String())
		})
	}
}
