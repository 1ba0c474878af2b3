package migration

import (
	"agentgate/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.RoleModel{},
		&models.RoleClaimModel{},
		&models.RoleResourceModel{},
	}
}
