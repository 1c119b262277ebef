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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
)

func doLogin(t *testing.T, env *testEnv, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:52100"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessAuditsAndIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)

	rec := doLogin(t, env,
		`{"email":"admin@osgb.example","password":"correct-horse-1"}`,
		map[string]string{"X-Forwarded-For": "203.0.113.10, 70.41.3.18"},
	)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		User        userPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "admin@osgb.example", resp.User.Email)

	claims, err := env.codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "osgb_demo", claims.Locator)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, tenant.ID, *claims.TenantID)

	// Exactly one audit entry, a successful login snapshotting actor and
	// tenant.
	require.Equal(t, 1, env.auditStore.count())
	entry := env.auditStore.lastEntry()
	assert.Equal(t, audit.KindLogin, entry.Kind)
	assert.True(t, entry.Success)
	assert.Equal(t, "admin@osgb.example", entry.Actor.Email)
	assert.Equal(t, "Demo OSGB", entry.Tenant.Name)
	assert.Equal(t, "203.0.113.10", entry.Meta.ExternalIP)
	assert.Equal(t, "10.1.2.3", entry.Meta.InternalIP)
}

func TestLoginWrongPasswordAudited(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)

	rec := doLogin(t, env, `{"email":"admin@osgb.example","password":"wrong"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")

	require.Equal(t, 1, env.auditStore.count())
	entry := env.auditStore.lastEntry()
	assert.Equal(t, audit.KindLoginFailed, entry.Kind)
	assert.False(t, entry.Success)
	assert.Equal(t, "admin@osgb.example", entry.Actor.Email)
	assert.Nil(t, entry.Actor.ID)
}

func TestLoginUnknownEmailSameResponse(t *testing.T) {
	env := newTestEnv(t)

	rec := doLogin(t, env, `{"email":"nobody@osgb.example","password":"whatever"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")

	entry := env.auditStore.lastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, audit.KindLoginFailed, entry.Kind)
	assert.Equal(t, "nobody@osgb.example", entry.Actor.Email)
}

func TestLoginInactiveTenantRejected(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	_, err := env.registry.Deactivate(context.Background(), tenant.ID)
	require.NoError(t, err)

	rec := doLogin(t, env, `{"email":"admin@osgb.example","password":"correct-horse-1"}`, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	entry := env.auditStore.lastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, audit.KindLoginFailed, entry.Kind)
	assert.Equal(t, "tenant is deactivated", entry.FailureMessage)
}

func TestLoginSucceedsWhenAuditStoreFails(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	env.auditStore.failing = true

	rec := doLogin(t, env, `{"email":"admin@osgb.example","password":"correct-horse-1"}`, nil)

	// The trail is best-effort: losing the entry never fails the login.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")
	assert.Equal(t, 0, env.auditStore.count())
}

func TestChangePasswordAudited(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	tok := env.issueToken(t, user, "osgb_demo", 0)

	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password",
		strings.NewReader(`{"current_password":"correct-horse-1","new_password":"better-horse-2"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.RemoteAddr = "10.1.2.3:52100"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	entry := env.auditStore.lastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, audit.KindPasswordChanged, entry.Kind)

	// Old password no longer authenticates, the new one does.
	rec = doLogin(t, env, `{"email":"admin@osgb.example","password":"correct-horse-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doLogin(t, env, `{"email":"admin@osgb.example","password":"better-horse-2"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "Demo OSGB", "osgb_demo")
	user := env.seedUser(t, "admin@osgb.example", "correct-horse-1", identity.RoleTenantAdmin, &tenant.ID)
	tok := env.issueToken(t, user, "osgb_demo", 0)

	router := NewRouter(env.handler, NewRateLimiter(1000, 1000))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got userPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "tenant_admin", got.Role)
}
