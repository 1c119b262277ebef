// Copyright 2026 The WorkSafe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/registry"
	"github.com/worksafe/worksafe/internal/tenantdb"
	"github.com/worksafe/worksafe/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memUserRepo is an in-memory identity.UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*identity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*identity.User)}
}

func (m *memUserRepo) Create(_ context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = int64(len(m.users) + 1)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) Update(_ context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return identity.ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUserRepo) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.Active = false
	return nil
}

// memTenantRepo is an in-memory registry.Repository.
type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[int64]*registry.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[int64]*registry.Tenant)}
}

func (m *memTenantRepo) Create(_ context.Context, t *registry.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Locator == t.Locator {
			return registry.ErrTenantExists
		}
	}
	t.ID = int64(len(m.tenants) + 1)
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *memTenantRepo) GetByID(_ context.Context, id int64) (*registry.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, registry.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantRepo) GetByLocator(_ context.Context, locator string) (*registry.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Locator == locator {
			cp := *t
			return &cp, nil
		}
	}
	return nil, registry.ErrTenantNotFound
}

func (m *memTenantRepo) Update(_ context.Context, t *registry.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; !ok {
		return registry.ErrTenantNotFound
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *memTenantRepo) List(_ context.Context, limit, offset int) ([]*registry.Tenant, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*registry.Tenant
	for _, t := range m.tenants {
		cp := *t
		all = append(all, &cp)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// memAuditStore is an in-memory audit.Store. The failing flag simulates an
// unreachable audit database.
type memAuditStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
	failing bool
}

func (m *memAuditStore) Insert(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("audit store unavailable")
	}
	cp := *e
	cp.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditStore) List(_ context.Context, f audit.Filter, limit, offset int) ([]*audit.Entry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*audit.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Module != "" && e.Module != f.Module {
			continue
		}
		if f.ActorEmail != "" && !strings.Contains(e.Actor.Email, f.ActorEmail) {
			continue
		}
		if f.Success != nil && e.Success != *f.Success {
			continue
		}
		if f.TenantID != nil && (e.Tenant.ID == nil || *e.Tenant.ID != *f.TenantID) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *memAuditStore) Summary(_ context.Context, since time.Time, tenantID *int64) (*audit.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum audit.Summary
	for _, e := range m.entries {
		if e.CreatedAt.Before(since) {
			continue
		}
		if tenantID != nil && (e.Tenant.ID == nil || *e.Tenant.ID != *tenantID) {
			continue
		}
		sum.Total++
		if e.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		switch e.Kind {
		case audit.KindLogin:
			sum.Logins++
		case audit.KindLoginFailed:
			sum.FailedLogins++
		}
	}
	return &sum, nil
}

// lastEntry returns the newest recorded entry, or nil.
func (m *memAuditStore) lastEntry() *audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

func (m *memAuditStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// testEnv wires a full handler stack over in-memory stores.
type testEnv struct {
	handler    *Handler
	users      *memUserRepo
	tenants    *memTenantRepo
	auditStore *memAuditStore
	codec      *token.Codec
	identity   *identity.Service
	registry   *registry.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUserRepo()
	tenants := newMemTenantRepo()
	auditStore := &memAuditStore{}

	hasher := identity.NewPasswordHasher(16*1024, 1, 1, 16, 32)
	identityService := identity.NewService(users, hasher)
	registryService := registry.NewService(tenants)
	codec := token.NewCodec(testSecret, time.Hour)
	resolver := tenantdb.NewResolver(tenantdb.Config{
		Host: "localhost", Port: "5432", User: "test", Password: "test",
		SSLMode: "disable", MaxConns: 2,
	})
	t.Cleanup(resolver.Close)

	auditor := audit.NewRecorder(auditStore)
	auditQuery := audit.NewQueryService(auditStore)

	h := NewHandler(identityService, registryService, codec, resolver,
		auditor, auditQuery, t.TempDir(), 1024*1024)

	return &testEnv{
		handler:    h,
		users:      users,
		tenants:    tenants,
		auditStore: auditStore,
		codec:      codec,
		identity:   identityService,
		registry:   registryService,
	}
}

// seedTenant creates an active tenant and returns it.
func (env *testEnv) seedTenant(t *testing.T, name, locator string) *registry.Tenant {
	t.Helper()
	tenant, err := env.registry.CreateTenant(context.Background(), registry.CreateInput{
		Name:    name,
		Locator: locator,
	})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

// seedUser provisions a user with the given role and password.
func (env *testEnv) seedUser(t *testing.T, email, password string, role identity.Role, tenantID *int64) *identity.User {
	t.Helper()
	user, err := env.identity.Provision(context.Background(), identity.ProvisionInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		TenantID:  tenantID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// issueToken signs a token for a seeded user the way Login would.
func (env *testEnv) issueToken(t *testing.T, user *identity.User, locator string, ttl time.Duration) string {
	t.Helper()
	var signed string
	var err error
	if ttl != 0 {
		signed, err = env.codec.Issue(tokenClaims(user, locator), ttl)
	} else {
		signed, err = env.codec.Issue(tokenClaims(user, locator))
	}
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func tokenClaims(user *identity.User, locator string) token.Claims {
	c := token.Claims{
		UserID:   user.ID,
		Role:     string(user.Role),
		TenantID: user.TenantID,
		Locator:  locator,
	}
	c.Subject = user.Email
	return c
}
