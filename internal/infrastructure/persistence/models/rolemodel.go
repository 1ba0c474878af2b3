package models

import (
	"time"

	"gorm.io/datatypes"

	"agentgate/internal/shared/constants"
)

// RoleModel is the persisted form of a role, including its denormalized
// effective permissions. Claim and grant lists are stored as JSON
// columns; the reverse-lookup index tables are maintained alongside.
type RoleModel struct {
	ID              string                      `gorm:"primarykey;size:64"`
	Name            string                      `gorm:"not null;size:100"`
	Description     string                      `gorm:"type:text"`
	Claims          datatypes.JSONSlice[string] `gorm:"column:claims"`
	InheritsFrom    datatypes.JSONSlice[string] `gorm:"column:inherits_from"`
	GrantedTools    datatypes.JSONSlice[string] `gorm:"column:granted_tools"`
	GrantedModels   datatypes.JSONSlice[string] `gorm:"column:granted_models"`
	EffectiveTools  datatypes.JSONSlice[string] `gorm:"column:effective_tools"`
	EffectiveModels datatypes.JSONSlice[string] `gorm:"column:effective_models"`
	QuotaTier       string                      `gorm:"size:50"`
	Priority        int                         `gorm:"not null;default:0"`
	IsProtected     bool                        `gorm:"not null;default:false"`
	Enabled         bool                        `gorm:"not null;default:true"`
	UpdatedBy       string                      `gorm:"size:100"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RoleModel) TableName() string {
	return constants.TableRoles
}
