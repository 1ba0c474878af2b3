package cache

import (
	"sync"
	"time"

	"agentgate/internal/domain/approle"
	"agentgate/internal/shared/logger"
)

const (
	defaultSubjectTTL = 5 * time.Minute
	defaultRoleTTL    = 10 * time.Minute
	defaultClaimTTL   = 10 * time.Minute
)

// entry carries a cached value and its absolute expiry instant.
type entry[T any] struct {
	value    T
	expireAt time.Time
}

// ttlMap is a mutex-guarded map with lazy, read-time expiry. Expired
// entries are not physically evicted; they are skipped on read and
// overwritten on the next set.
type ttlMap[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	nowFn   func() time.Time
}

func newTTLMap[T any](ttl time.Duration, nowFn func() time.Time) *ttlMap[T] {
	return &ttlMap[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		nowFn:   nowFn,
	}
}

func (m *ttlMap[T]) get(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero T
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if m.nowFn().After(e.expireAt) {
		return zero, false
	}
	return e.value, true
}

func (m *ttlMap[T]) set(key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[T]{value: value, expireAt: m.nowFn().Add(m.ttl)}
}

func (m *ttlMap[T]) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *ttlMap[T]) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry[T])
}

func (m *ttlMap[T]) stats() MapStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.nowFn()
	var s MapStats
	for _, e := range m.entries {
		if now.After(e.expireAt) {
			s.Expired++
		} else {
			s.Entries++
		}
	}
	return s
}

// MapStats reports live and lazily expired entry counts for one map.
type MapStats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}

// Stats aggregates the three cache maps for operational visibility.
type Stats struct {
	Subjects MapStats `json:"subjects"`
	Roles    MapStats `json:"roles"`
	Claims   MapStats `json:"claims"`
}

// PermissionCache holds three independent TTL-bounded in-memory maps:
// per-subject merged permissions, per-role definitions, and per-claim
// role-id lists. Each map has its own lock; the cache is advisory only
// and must never be treated as authoritative past its TTL.
type PermissionCache struct {
	subjects *ttlMap[*approle.UserEffectivePermissions]
	roles    *ttlMap[*approle.Role]
	claims   *ttlMap[[]string]
	logger   logger.Interface
}

// Options tunes cache TTLs and, for tests, the time source.
type Options struct {
	SubjectTTL time.Duration
	RoleTTL    time.Duration
	ClaimTTL   time.Duration
	NowFn      func() time.Time
}

// NewPermissionCache creates a PermissionCache. Zero-valued options
// fall back to the defaults (5m subjects, 10m roles, 10m claims,
// wall clock).
func NewPermissionCache(opts Options, log logger.Interface) *PermissionCache {
	if opts.SubjectTTL <= 0 {
		opts.SubjectTTL = defaultSubjectTTL
	}
	if opts.RoleTTL <= 0 {
		opts.RoleTTL = defaultRoleTTL
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultClaimTTL
	}
	if opts.NowFn == nil {
		opts.NowFn = time.Now
	}
	return &PermissionCache{
		subjects: newTTLMap[*approle.UserEffectivePermissions](opts.SubjectTTL, opts.NowFn),
		roles:    newTTLMap[*approle.Role](opts.RoleTTL, opts.NowFn),
		claims:   newTTLMap[[]string](opts.ClaimTTL, opts.NowFn),
		logger:   log,
	}
}

// GetSubject returns the cached merged permissions for a subject.
func (c *PermissionCache) GetSubject(subjectID string) (*approle.UserEffectivePermissions, bool) {
	return c.subjects.get(subjectID)
}

// SetSubject caches a merged permission snapshot.
func (c *PermissionCache) SetSubject(subjectID string, perms *approle.UserEffectivePermissions) {
	c.subjects.set(subjectID, perms)
}

// GetRole returns a cached role definition.
func (c *PermissionCache) GetRole(roleID string) (*approle.Role, bool) {
	return c.roles.get(roleID)
}

// SetRole caches a role definition with its effective permissions.
func (c *PermissionCache) SetRole(role *approle.Role) {
	c.roles.set(role.ID(), role)
}

// GetClaimRoles returns the cached role-id list for a claim. A cached
// empty list is a valid hit: it records that the claim maps to nothing.
func (c *PermissionCache) GetClaimRoles(claim string) ([]string, bool) {
	return c.claims.get(claim)
}

// SetClaimRoles caches the role ids activated by a claim.
func (c *PermissionCache) SetClaimRoles(claim string, roleIDs []string) {
	c.claims.set(claim, roleIDs)
}

// InvalidateRole clears a role's definition entry and flushes the whole
// subject map. Any subject might have merged the role, and the
// claim→subject relationship is not tracked here, so correctness wins
// over surgical precision.
func (c *PermissionCache) InvalidateRole(roleID string) {
	c.roles.delete(roleID)
	c.subjects.clear()
	if c.logger != nil {
		c.logger.Debugw("role cache entry invalidated", "role_id", roleID)
	}
}

// InvalidateClaim clears a claim's mapping entry and flushes the whole
// subject map.
func (c *PermissionCache) InvalidateClaim(claim string) {
	c.claims.delete(claim)
	c.subjects.clear()
	if c.logger != nil {
		c.logger.Debugw("claim cache entry invalidated", "claim", claim)
	}
}

// InvalidateAll clears every map.
func (c *PermissionCache) InvalidateAll() {
	c.subjects.clear()
	c.roles.clear()
	c.claims.clear()
	if c.logger != nil {
		c.logger.Debug("permission cache fully invalidated")
	}
}

// Stats reports entry counts per map.
func (c *PermissionCache) Stats() Stats {
	return Stats{
		Subjects: c.subjects.stats(),
		Roles:    c.roles.stats(),
		Claims:   c.claims.stats(),
	}
}
