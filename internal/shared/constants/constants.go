package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeySubjectID = "subject_id"
	ContextKeyClaims    = "claims"
	ContextKeyRequestID = "request_id"

	// Database table names
	TableRoles         = "app_roles"
	TableRoleClaims    = "app_role_claims"
	TableRoleResources = "app_role_resources"

	// Well-known role ids. Both are protected: they cannot be deleted
	// and only their display metadata may be edited.
	RoleIDSystemAdmin = "system_admin"
	RoleIDDefault     = "default"

	// Priority bounds for role definitions
	MinRolePriority = 0
	MaxRolePriority = 1000
)
