// Package approle provides domain models and business logic for the
// application-role permission engine. It maps external identity claims
// to roles and resolves the flattened tool/model grants and quota tier
// each role carries.
package approle

import "regexp"

// Wildcard marks a grant set that covers every tool or model.
// A wildcard subsumes enumerated members: any set containing it
// collapses to the wildcard alone.
const Wildcard = "*"

// roleIDPattern constrains role ids to stable machine-friendly slugs.
var roleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// IsValidRoleID reports whether id is an acceptable role identifier.
func IsValidRoleID(id string) bool {
	return roleIDPattern.MatchString(id)
}

// ResourceKind identifies which grant list a resource id belongs to.
type ResourceKind string

const (
	// ResourceKindTool represents a tool resource
	ResourceKindTool ResourceKind = "tool"
	// ResourceKindModel represents a model resource
	ResourceKindModel ResourceKind = "model"
)

// IsValid checks if the resource kind is valid
func (rk ResourceKind) IsValid() bool {
	switch rk {
	case ResourceKindTool, ResourceKindModel:
		return true
	default:
		return false
	}
}

// String returns the string representation of the resource kind
func (rk ResourceKind) String() string {
	return string(rk)
}

// QuotaTier is the usage-tier label a role can declare. The empty tier
// means the role declares none; tier selection across multiple matched
// roles happens at merge time, never during per-role resolution.
type QuotaTier string

// QuotaTierUnlimited is the tier carried by the system admin role.
const QuotaTierUnlimited QuotaTier = "unlimited"

// None reports whether the role declares no tier.
func (q QuotaTier) None() bool {
	return q == ""
}

// String returns the string representation of the quota tier
func (q QuotaTier) String() string {
	return string(q)
}

// GrantSource describes how a role came to grant a resource.
type GrantSource string

const (
	// GrantSourceDirect means the resource appears in the role's own grants.
	GrantSourceDirect GrantSource = "direct"
	// GrantSourceInherited means the resource arrives through an inherited
	// role's effective set.
	GrantSourceInherited GrantSource = "inherited"
)

// ResourceGrant annotates one role granting a resource, either directly
// or through an inherited parent.
type ResourceGrant struct {
	RoleID string
	Source GrantSource
	// Via names the inherited parent contributing the grant.
	// Empty for direct grants.
	Via string
}
