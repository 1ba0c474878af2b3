package models

import (
	"time"

	"agentgate/internal/shared/constants"
)

// RoleClaimModel is one row of the claim→role reverse index. Rows are
// created and deleted in lockstep with the owning role's claim list.
type RoleClaimModel struct {
	ID        uint   `gorm:"primarykey"`
	Claim     string `gorm:"not null;size:191;uniqueIndex:idx_claim_role;index:idx_claim"`
	RoleID    string `gorm:"not null;size:64;uniqueIndex:idx_claim_role;index:idx_claim_role_id"`
	CreatedAt time.Time
}

func (RoleClaimModel) TableName() string {
	return constants.TableRoleClaims
}

// RoleResourceModel is one row of the tool→role / model→role reverse
// index, keyed by resource kind.
type RoleResourceModel struct {
	ID           uint   `gorm:"primarykey"`
	ResourceKind string `gorm:"not null;size:16;uniqueIndex:idx_resource_role;index:idx_resource"`
	ResourceID   string `gorm:"not null;size:191;uniqueIndex:idx_resource_role;index:idx_resource"`
	RoleID       string `gorm:"not null;size:64;uniqueIndex:idx_resource_role;index:idx_resource_role_id"`
	CreatedAt    time.Time
}

func (RoleResourceModel) TableName() string {
	return constants.TableRoleResources
}
