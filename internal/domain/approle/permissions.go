package approle

import (
	"sort"
	"time"

	"agentgate/internal/shared/utils/setutil"
)

// EffectivePermissions is the flattened, inheritance-resolved grant set
// stored on a role. It is recomputed on every save and never edited
// directly. The shape is fixed so merge logic stays exhaustive and
// type-checked.
type EffectivePermissions struct {
	Tools  []string
	Models []string
	Tier   QuotaTier
}

// NewEffectivePermissions normalizes the given sets: deduplicated,
// sorted, and collapsed to the wildcard alone when present.
func NewEffectivePermissions(tools, models []string, tier QuotaTier) EffectivePermissions {
	return EffectivePermissions{
		Tools:  normalizeGrantSet(tools),
		Models: normalizeGrantSet(models),
		Tier:   tier,
	}
}

// HasTool reports whether the set grants the tool. Wildcard always passes.
func (p EffectivePermissions) HasTool(toolID string) bool {
	return containsOrWildcard(p.Tools, toolID)
}

// HasModel reports whether the set grants the model. Wildcard always passes.
func (p EffectivePermissions) HasModel(modelID string) bool {
	return containsOrWildcard(p.Models, modelID)
}

// Equal reports whether two permission sets are identical. Used to stop
// fan-out recomputation once a fixpoint is reached.
func (p EffectivePermissions) Equal(other EffectivePermissions) bool {
	if p.Tier != other.Tier {
		return false
	}
	return equalSorted(p.Tools, other.Tools) && equalSorted(p.Models, other.Models)
}

// UserEffectivePermissions is the request-scoped merge of every role
// matching a subject's claims. It is an immutable snapshot: constructed
// once on cache miss and never mutated afterwards.
type UserEffectivePermissions struct {
	SubjectID  string
	RoleIDs    []string
	Tools      []string
	Models     []string
	Tier       QuotaTier
	ComputedAt time.Time
}

// CanAccessTool reports whether the merged set grants the tool.
func (u *UserEffectivePermissions) CanAccessTool(toolID string) bool {
	return containsOrWildcard(u.Tools, toolID)
}

// CanAccessModel reports whether the merged set grants the model.
func (u *UserEffectivePermissions) CanAccessModel(modelID string) bool {
	return containsOrWildcard(u.Models, modelID)
}

// MergeRoles combines the effective permissions of every matched role
// into one subject view. Tool and model sets are unioned with wildcard
// collapse. The quota tier comes from the highest-priority role that
// declares one; equal priorities tie-break by ascending role id so the
// result is independent of claim ordering.
func MergeRoles(subjectID string, roles []*Role, now time.Time) *UserEffectivePermissions {
	ordered := make([]*Role, len(roles))
	copy(ordered, roles)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() > ordered[j].Priority()
		}
		return ordered[i].ID() < ordered[j].ID()
	})

	roleIDs := make([]string, 0, len(ordered))
	tools := setutil.NewStringSet()
	models := setutil.NewStringSet()
	var tier QuotaTier

	for _, role := range ordered {
		roleIDs = append(roleIDs, role.ID())
		tools.AddAll(role.Effective().Tools)
		models.AddAll(role.Effective().Models)
		if tier.None() && !role.Effective().Tier.None() {
			tier = role.Effective().Tier
		}
	}

	return &UserEffectivePermissions{
		SubjectID:  subjectID,
		RoleIDs:    roleIDs,
		Tools:      collapseWildcard(tools),
		Models:     collapseWildcard(models),
		Tier:       tier,
		ComputedAt: now,
	}
}

func normalizeGrantSet(values []string) []string {
	set := setutil.NewStringSetWithCap(len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set.Add(v)
	}
	return collapseWildcard(set)
}

func collapseWildcard(set *setutil.StringSet) []string {
	if set.Has(Wildcard) {
		return []string{Wildcard}
	}
	return set.ToSortedSlice()
}

func containsOrWildcard(sorted []string, id string) bool {
	for _, v := range sorted {
		if v == Wildcard || v == id {
			return true
		}
	}
	return false
}

func equalSorted(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
