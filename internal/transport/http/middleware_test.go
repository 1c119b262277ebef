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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/token"
)

func doRequest(env *testEnv, method, path, token string) *httptest.ResponseRecorder {
	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "10.1.2.3:52100"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	expired := env.issueToken(t, user, "osgb_demo", -time.Minute)

	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Same generic body as a malformed token.
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestExpiredQueryTokenOnDownloadRoute(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	expired := env.issueToken(t, user, "osgb_demo", -time.Minute)

	// The query fallback does not soften expiry checks.
	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/download/1?t="+expired, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestQueryTokenIgnoredOutsideDownloadRoutes(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	tok := env.issueToken(t, user, "osgb_demo", 0)

	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me?t="+tok, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGarbageTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestDeactivatedUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	tok := env.issueToken(t, user, "osgb_demo", 0)

	require.NoError(t, env.users.Deactivate(context.Background(), user.ID))

	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "account is deactivated")
}

func TestRoleRejectionListsAllowedRoles(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "worker@osgb.example", "correct-horse-1", identity.RoleEmployee, &tenant.ID)
	tok := env.issueToken(t, user, "osgb_demo", 0)

	rec := doRequest(env, http.MethodGet, "/api/v1/companies/", tok)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tenant_admin")
	assert.Contains(t, body, "safety_specialist")
	assert.Contains(t, body, "occupational_physician")
	assert.Contains(t, body, "health_staff")

	// The rejection itself lands in the trail.
	entry := env.auditStore.lastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, audit.KindPermissionDenied, entry.Kind)
	assert.False(t, entry.Success)
	assert.Equal(t, "worker@osgb.example", entry.Actor.Email)
	assert.Equal(t, "companies", entry.Module)
}

func TestTenantlessTokenBadRequestOnTenantScopedRoute(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "staff@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)

	// A token without a locator passes authentication and the role check
	// but cannot reach a tenant store: 400, not 500.
	rec := doRequest(env, http.MethodGet, "/api/v1/companies/", env.issueToken(t, user, "", 0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant context required")

	// A platform admin on a registry route still works without a locator.
	admin := env.seedUser(t, "root@worksafe.example", "correct-horse-1", identity.RolePlatformAdmin, nil)
	rec = doRequest(env, http.MethodGet, "/api/v1/audit", env.issueToken(t, admin, "", 0))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.handler, NewRateLimiter(1, 2))

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.1.2.3:52100"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestUnknownSubjectUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	c := token.Claims{UserID: 99, Role: string(identity.RoleTenantAdmin), Locator: "osgb_demo"}
	c.Subject = "ghost@osgb.example"
	tok, err := env.codec.Issue(c)
	require.NoError(t, err)

	// Same generic body as a malformed token.
	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuthenticationResolvesBySubjectEmail(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)

	// The subject email is authoritative; a stale numeric id in the
	// claims does not break authentication.
	c := tokenClaims(user, "osgb_demo")
	c.UserID = user.ID + 100
	tok, err := env.codec.Issue(c)
	require.NoError(t, err)

	rec := doRequest(env, http.MethodGet, "/api/v1/auth/me", tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin@osgb.example")
}
