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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/tenantdb"
)

// LoggingMiddleware logs request start and end with request metadata
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// bearerToken extracts the credential from the Authorization header. When
// allowQuery is set and the header is absent, the t query parameter is
// accepted instead; browsers cannot attach headers to plain download links.
func bearerToken(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return h[7:]
		}
		return ""
	}
	if allowQuery {
		return r.URL.Query().Get("t")
	}
	return ""
}

func (h *Handler) authenticate(allowQuery bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r, allowQuery)
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			// Expired and malformed tokens get the same response so the
			// body never leaks which check failed.
			claims, err := h.tokenCodec.Verify(raw)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			// The subject email is the identity anchor; the numeric ID in
			// the claims is informational.
			user, err := h.identityService.GetByEmail(r.Context(), claims.Subject)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if !user.Active {
				respondError(w, http.StatusForbidden, "account is deactivated")
				return
			}

			ctx := withClaims(r.Context(), claims)
			ctx = withUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate requires a valid bearer token and loads the current user.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return h.authenticate(false)(next)
}

// AuthenticateWithQueryToken is the download-route variant that also
// accepts the token as a query parameter.
func (h *Handler) AuthenticateWithQueryToken(next http.Handler) http.Handler {
	return h.authenticate(true)(next)
}

// RequireRoles rejects authenticated users whose role is not in the allowed
// set. The rejection names the allowed roles and leaves a permission_denied
// audit entry.
func (h *Handler) RequireRoles(roles ...identity.Role) func(next http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	allowed := strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if err := identity.RequireRole(user, roles...); err != nil {
				h.auditor.Record(r.Context(), audit.Entry{
					Actor: actorSnapshot(user),
					Tenant: audit.Tenant{
						ID: user.TenantID,
					},
					Kind:        audit.KindPermissionDenied,
					Module:      moduleFromPath(r.URL.Path),
					Description: fmt.Sprintf("role %s denied, requires one of: %s", user.Role, allowed),
					Meta:        audit.MetaFromRequest(r),
					Success:     false,
				})
				respondError(w, http.StatusForbidden,
					"this operation requires one of the following roles: "+allowed)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithTenantStore resolves the tenant database named by the token's locator
// and stores the handle in the request context. Tokens without a tenant
// context, such as a platform admin's, are rejected on tenant-scoped
// routes.
func (h *Handler) WithTenantStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		handle, err := h.resolver.Resolve(r.Context(), claims.Locator)
		if err != nil {
			switch {
			case errors.Is(err, tenantdb.ErrTenantRequired):
				respondError(w, http.StatusBadRequest, "tenant context required")
			case errors.Is(err, tenantdb.ErrInvalidLocator):
				respondError(w, http.StatusBadRequest, "invalid tenant context")
			default:
				slog.ErrorContext(r.Context(), "tenant store resolution failed",
					logger.Locator(claims.Locator),
					logger.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withTenantStore(r.Context(), handle)))
	})
}

// actorSnapshot copies the identifying user fields into an audit actor.
func actorSnapshot(u *identity.User) audit.Actor {
	id := u.ID
	return audit.Actor{
		ID:    &id,
		Email: u.Email,
		Role:  string(u.Role),
		Name:  u.DisplayName(),
	}
}

// moduleFromPath derives the audit module name from the route, e.g.
// /api/v1/companies/3 -> companies.
func moduleFromPath(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return "system"
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i]
	}
	if rest == "" {
		return "system"
	}
	return rest
}
