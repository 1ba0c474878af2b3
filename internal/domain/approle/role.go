package approle

import (
	"fmt"
	"time"

	"agentgate/internal/shared/constants"
)

// Role is a named grant bundle activated by one or more identity claims.
// Effective permissions are denormalized onto the role and recomputed on
// every save; they are never edited directly.
type Role struct {
	id            string
	name          string
	description   string
	claims        []string
	inheritsFrom  []string
	grantedTools  []string
	grantedModels []string
	effective     EffectivePermissions
	quotaTier     QuotaTier
	priority      int
	isProtected   bool
	enabled       bool
	createdAt     time.Time
	updatedAt     time.Time
	updatedBy     string
}

func NewRole(id, name, description string) (*Role, error) {
	if !IsValidRoleID(id) {
		return nil, ErrInvalidRoleID
	}
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("role name too long (max 100 characters)")
	}

	now := time.Now()
	return &Role{
		id:          id,
		name:        name,
		description: description,
		enabled:     true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructRole(
	id string,
	name string,
	description string,
	claims []string,
	inheritsFrom []string,
	grantedTools []string,
	grantedModels []string,
	effective EffectivePermissions,
	quotaTier QuotaTier,
	priority int,
	isProtected bool,
	enabled bool,
	createdAt, updatedAt time.Time,
	updatedBy string,
) (*Role, error) {
	if id == "" {
		return nil, fmt.Errorf("role ID cannot be empty")
	}

	return &Role{
		id:            id,
		name:          name,
		description:   description,
		claims:        copyStrings(claims),
		inheritsFrom:  copyStrings(inheritsFrom),
		grantedTools:  copyStrings(grantedTools),
		grantedModels: copyStrings(grantedModels),
		effective:     effective,
		quotaTier:     quotaTier,
		priority:      priority,
		isProtected:   isProtected,
		enabled:       enabled,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		updatedBy:     updatedBy,
	}, nil
}

func (r *Role) ID() string {
	return r.id
}

func (r *Role) Name() string {
	return r.name
}

func (r *Role) Description() string {
	return r.description
}

func (r *Role) Claims() []string {
	return copyStrings(r.claims)
}

func (r *Role) InheritsFrom() []string {
	return copyStrings(r.inheritsFrom)
}

func (r *Role) GrantedTools() []string {
	return copyStrings(r.grantedTools)
}

func (r *Role) GrantedModels() []string {
	return copyStrings(r.grantedModels)
}

func (r *Role) Effective() EffectivePermissions {
	return r.effective
}

func (r *Role) QuotaTier() QuotaTier {
	return r.quotaTier
}

func (r *Role) Priority() int {
	return r.priority
}

func (r *Role) IsProtected() bool {
	return r.isProtected
}

func (r *Role) IsEnabled() bool {
	return r.enabled
}

func (r *Role) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Role) UpdatedAt() time.Time {
	return r.updatedAt
}

func (r *Role) UpdatedBy() string {
	return r.updatedBy
}

// UpdateDisplay changes the role's display metadata. This is the only
// mutation permitted on protected roles.
func (r *Role) UpdateDisplay(name, description string) error {
	if name == "" {
		return fmt.Errorf("role name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("role name too long (max 100 characters)")
	}
	r.name = name
	r.description = description
	r.updatedAt = time.Now()
	return nil
}

func (r *Role) SetClaims(claims []string) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	seen := make(map[string]struct{}, len(claims))
	cleaned := make([]string, 0, len(claims))
	for _, c := range claims {
		if c == "" {
			return fmt.Errorf("claim cannot be empty")
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cleaned = append(cleaned, c)
	}
	r.claims = cleaned
	r.updatedAt = time.Now()
	return nil
}

// SetInheritsFrom replaces the single-level inheritance list. Inherited
// roles are consumed as already-flattened effective permissions; the
// list may not include the role itself.
func (r *Role) SetInheritsFrom(roleIDs []string) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	seen := make(map[string]struct{}, len(roleIDs))
	cleaned := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if id == r.id {
			return ErrSelfInheritance
		}
		if !IsValidRoleID(id) {
			return ErrInvalidRoleID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	r.inheritsFrom = cleaned
	r.updatedAt = time.Now()
	return nil
}

// SetGrants replaces the direct grant list for one resource kind.
func (r *Role) SetGrants(kind ResourceKind, resourceIDs []string) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	if !kind.IsValid() {
		return ErrInvalidResourceKind
	}
	cleaned := normalizeGrantSet(resourceIDs)
	switch kind {
	case ResourceKindTool:
		r.grantedTools = cleaned
	case ResourceKindModel:
		r.grantedModels = cleaned
	}
	r.updatedAt = time.Now()
	return nil
}

// Grant adds one resource id to the direct grants of the given kind.
func (r *Role) Grant(kind ResourceKind, resourceID string) error {
	return r.mutateGrants(kind, resourceID, true)
}

// Revoke removes one resource id from the direct grants of the given kind.
func (r *Role) Revoke(kind ResourceKind, resourceID string) error {
	return r.mutateGrants(kind, resourceID, false)
}

func (r *Role) mutateGrants(kind ResourceKind, resourceID string, add bool) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	if !kind.IsValid() {
		return ErrInvalidResourceKind
	}
	if resourceID == "" {
		return fmt.Errorf("resource ID is required")
	}

	current := r.grantedTools
	if kind == ResourceKindModel {
		current = r.grantedModels
	}

	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id == resourceID {
			continue
		}
		next = append(next, id)
	}
	if add {
		next = append(next, resourceID)
	}

	if kind == ResourceKindTool {
		r.grantedTools = normalizeGrantSet(next)
	} else {
		r.grantedModels = normalizeGrantSet(next)
	}
	r.updatedAt = time.Now()
	return nil
}

// HasDirectGrant reports whether the resource appears in the role's own
// (pre-inheritance) grants.
func (r *Role) HasDirectGrant(kind ResourceKind, resourceID string) bool {
	grants := r.grantedTools
	if kind == ResourceKindModel {
		grants = r.grantedModels
	}
	for _, id := range grants {
		if id == resourceID {
			return true
		}
	}
	return false
}

func (r *Role) SetQuotaTier(tier QuotaTier) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	r.quotaTier = tier
	r.updatedAt = time.Now()
	return nil
}

func (r *Role) SetPriority(priority int) error {
	if r.isProtected {
		return ErrProtectedRole
	}
	if priority < constants.MinRolePriority || priority > constants.MaxRolePriority {
		return ErrPriorityOutOfRange
	}
	r.priority = priority
	r.updatedAt = time.Now()
	return nil
}

func (r *Role) Enable() error {
	if r.enabled {
		return nil
	}
	r.enabled = true
	r.updatedAt = time.Now()
	return nil
}

// Disable excludes the role from resolution. Protected roles exist to
// prevent lockout and cannot be disabled.
func (r *Role) Disable() error {
	if r.isProtected {
		return ErrProtectedRole
	}
	if !r.enabled {
		return nil
	}
	r.enabled = false
	r.updatedAt = time.Now()
	return nil
}

// SetEffective stores a freshly recomputed effective-permission set.
// Unlike admin edits this is permitted on protected roles: fan-out
// recomputation is a maintenance operation, not a field edit.
func (r *Role) SetEffective(effective EffectivePermissions) {
	r.effective = effective
	r.updatedAt = time.Now()
}

// Touch records the identity of the last editor.
func (r *Role) Touch(updatedBy string) {
	r.updatedBy = updatedBy
	r.updatedAt = time.Now()
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
