package approle

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"agentgate/internal/domain/approle"
	"agentgate/internal/infrastructure/cache"
	"agentgate/internal/shared/config"
	"agentgate/internal/shared/constants"
	"agentgate/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRoleRepository is an in-memory approle.RoleRepository mirroring
// the real repository's reverse-index semantics: the index lookups see
// direct grants and claims only.
type fakeRoleRepository struct {
	mu       sync.Mutex
	roles    map[string]*approle.Role
	failWith error
}

func newFakeRepo() *fakeRoleRepository {
	return &fakeRoleRepository{roles: make(map[string]*approle.Role)}
}

func cloneRole(r *approle.Role) *approle.Role {
	clone, err := approle.ReconstructRole(
		r.ID(), r.Name(), r.Description(),
		r.Claims(), r.InheritsFrom(),
		r.GrantedTools(), r.GrantedModels(),
		r.Effective(), r.QuotaTier(), r.Priority(),
		r.IsProtected(), r.IsEnabled(),
		r.CreatedAt(), r.UpdatedAt(), r.UpdatedBy(),
	)
	if err != nil {
		panic(err)
	}
	return clone
}

func (f *fakeRoleRepository) Create(ctx context.Context, role *approle.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.roles[role.ID()]; ok {
		return approle.ErrRoleExists
	}
	f.roles[role.ID()] = cloneRole(role)
	return nil
}

func (f *fakeRoleRepository) GetByID(ctx context.Context, id string) (*approle.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	role, ok := f.roles[id]
	if !ok {
		return nil, nil
	}
	return cloneRole(role), nil
}

func (f *fakeRoleRepository) GetByIDs(ctx context.Context, ids []string) ([]*approle.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*approle.Role
	for _, id := range ids {
		if role, ok := f.roles[id]; ok {
			out = append(out, cloneRole(role))
		}
	}
	return out, nil
}

func (f *fakeRoleRepository) List(ctx context.Context, filter approle.RoleFilter) ([]*approle.Role, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, 0, f.failWith
	}

	ids := make([]string, 0, len(f.roles))
	for id, role := range f.roles {
		if filter.Enabled != nil && role.IsEnabled() != *filter.Enabled {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := int64(len(ids))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	start := (page - 1) * pageSize
	if start > len(ids) {
		start = len(ids)
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]*approle.Role, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, cloneRole(f.roles[id]))
	}
	return out, total, nil
}

func (f *fakeRoleRepository) Update(ctx context.Context, role *approle.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.roles[role.ID()]; !ok {
		return approle.ErrRoleNotFound
	}
	f.roles[role.ID()] = cloneRole(role)
	return nil
}

func (f *fakeRoleRepository) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.roles[id]; !ok {
		return approle.ErrRoleNotFound
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRoleRepository) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.roles[id]
	return ok, nil
}

func (f *fakeRoleRepository) ListIDsByClaim(ctx context.Context, claim string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var ids []string
	for id, role := range f.roles {
		for _, c := range role.Claims() {
			if c == claim {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRoleRepository) ListIDsGrantingResource(ctx context.Context, kind approle.ResourceKind, resourceID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var ids []string
	for id, role := range f.roles {
		if role.HasDirectGrant(kind, resourceID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRoleRepository) ListInheritingFrom(ctx context.Context, roleID string) ([]*approle.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*approle.Role
	ids := make([]string, 0, len(f.roles))
	for id := range f.roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, parent := range f.roles[id].InheritsFrom() {
			if parent == roleID {
				out = append(out, cloneRole(f.roles[id]))
				break
			}
		}
	}
	return out, nil
}

type testServices struct {
	repo  *fakeRoleRepository
	cache *cache.PermissionCache
	authz *AuthorizationService
	admin *AdminService
	sync  *SyncService
	cfg   *config.AppRoleConfig
}

func newTestServices(cfg *config.AppRoleConfig) *testServices {
	if cfg == nil {
		cfg = &config.AppRoleConfig{}
	}
	log := testLogger()
	repo := newFakeRepo()
	permCache := cache.NewPermissionCache(cache.Options{}, log)
	admin := NewAdminService(repo, permCache, log)
	return &testServices{
		repo:  repo,
		cache: permCache,
		authz: NewAuthorizationService(repo, permCache, cfg, log),
		admin: admin,
		sync:  NewSyncService(repo, admin, log),
		cfg:   cfg,
	}
}
