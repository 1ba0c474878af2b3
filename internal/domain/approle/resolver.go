package approle

import "agentgate/internal/shared/utils/setutil"

// Recompute flattens a role's effective permissions from its direct
// grants plus the already-flattened effective sets of its inherited
// roles. It runs at save time, never at request time, so reads stay
// O(1). The quota tier is the role's own declaration; tier selection
// across multiple matched roles happens later during merge.
//
// Callers are responsible for resolving inheritsFrom ids to effective
// sets and for dropping dangling or disabled entries before calling.
func Recompute(role *Role, inherited []EffectivePermissions) EffectivePermissions {
	tools := setutil.NewStringSetFrom(role.GrantedTools())
	models := setutil.NewStringSetFrom(role.GrantedModels())

	for _, parent := range inherited {
		tools.AddAll(parent.Tools)
		models.AddAll(parent.Models)
	}

	return EffectivePermissions{
		Tools:  collapseWildcard(tools),
		Models: collapseWildcard(models),
		Tier:   role.QuotaTier(),
	}
}
