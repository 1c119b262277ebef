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

	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/tenantdb"
	"github.com/worksafe/worksafe/internal/token"
)

type contextKey string

const (
	claimsKey      contextKey = "claims"
	userKey        contextKey = "user"
	tenantStoreKey contextKey = "tenant_store"
)

func withClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the verified token claims of the request.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok
}

func withUser(ctx context.Context, u *identity.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user of the request.
func UserFromContext(ctx context.Context) (*identity.User, bool) {
	u, ok := ctx.Value(userKey).(*identity.User)
	return u, ok
}

func withTenantStore(ctx context.Context, h *tenantdb.Handle) context.Context {
	return context.WithValue(ctx, tenantStoreKey, h)
}

// TenantStoreFromContext returns the resolved tenant database handle.
func TenantStoreFromContext(ctx context.Context) (*tenantdb.Handle, bool) {
	h, ok := ctx.Value(tenantStoreKey).(*tenantdb.Handle)
	return h, ok
}
