package approle

import "context"

// RoleRepository is the storage boundary for role definitions and their
// reverse-lookup indexes (claim→role, tool→role, model→role). Index
// rows are maintenance artifacts of the role entity: implementations
// must keep them in lockstep with the owning role, preferably in a
// single transaction per write.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Role, error)
	List(ctx context.Context, filter RoleFilter) ([]*Role, int64, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)

	// ListIDsByClaim returns the ids of every role activated by the claim.
	ListIDsByClaim(ctx context.Context, claim string) ([]string, error)

	// ListIDsGrantingResource returns the ids of roles whose direct
	// grants include the resource.
	ListIDsGrantingResource(ctx context.Context, kind ResourceKind, resourceID string) ([]string, error)

	// ListInheritingFrom returns every role whose inherits_from list
	// contains the given role id. Used for fan-out recomputation.
	ListInheritingFrom(ctx context.Context, roleID string) ([]*Role, error)
}

// RoleFilter narrows List queries.
type RoleFilter struct {
	Enabled  *bool
	Page     int
	PageSize int
}
