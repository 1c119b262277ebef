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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/registry"
	"github.com/worksafe/worksafe/internal/token"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPayload is the user shape returned by auth endpoints.
type userPayload struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenant_id"`
}

func toUserPayload(u *identity.User) userPayload {
	return userPayload{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		TenantID:  u.TenantID,
	}
}

// Login authenticates a user and issues a session token. Both outcomes
// leave an audit entry; the entry for an unknown email snapshots only what
// the attacker submitted.
// @Summary Login
// @Description Authenticate with email and password, returns a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta := audit.MetaFromRequest(r)
	email := identity.NormalizeEmail(req.Email)

	loginFailed := func(reason string, status int, message string) {
		h.auditor.Record(r.Context(), audit.Entry{
			Actor:          audit.Actor{Email: email},
			Kind:           audit.KindLoginFailed,
			Module:         "auth",
			Description:    "login attempt failed",
			Meta:           meta,
			Success:        false,
			FailureMessage: reason,
		})
		respondError(w, status, message)
	}

	user, err := h.identityService.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInactiveAccount):
			loginFailed("account is deactivated", http.StatusForbidden, "account is deactivated")
		case errors.Is(err, identity.ErrInvalidCredentials):
			loginFailed("invalid credentials", http.StatusUnauthorized, "invalid email or password")
		default:
			slog.ErrorContext(r.Context(), "login failed",
				logger.Email(email),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	// Tenant users carry their database locator in the token. Platform
	// admins have neither tenant nor locator.
	var tenantSnapshot audit.Tenant
	var locator string
	if user.TenantID != nil {
		tenant, err := h.registryService.FindTenant(r.Context(), *user.TenantID)
		if err != nil {
			if errors.Is(err, registry.ErrTenantNotFound) {
				loginFailed("tenant not found", http.StatusForbidden, "tenant is not available")
				return
			}
			slog.ErrorContext(r.Context(), "tenant lookup failed",
				logger.TenantID(*user.TenantID),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !tenant.Active {
			loginFailed("tenant is deactivated", http.StatusForbidden, "tenant is deactivated")
			return
		}
		tenantSnapshot = audit.Tenant{ID: &tenant.ID, Name: tenant.Name}
		locator = tenant.Locator
	}

	signed, err := h.tokenCodec.Issue(token.Claims{
		UserID:   user.ID,
		Role:     string(user.Role),
		TenantID: user.TenantID,
		Locator:  locator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.Email,
		},
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "token issuance failed",
			logger.UserID(user.ID),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      tenantSnapshot,
		Kind:        audit.KindLogin,
		Module:      "auth",
		Description: "user logged in",
		Meta:        meta,
		Success:     true,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"user":         toUserPayload(user),
	})
}

// GetCurrentUser returns the authenticated user's profile
// @Summary Current User
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userPayload
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, toUserPayload(user))
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the authenticated user's password
// @Summary Change Password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param passwords body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var status int
		var msg string
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			status, msg = http.StatusUnauthorized, "current password is incorrect"
		case errors.Is(err, identity.ErrWeakPassword):
			status, msg = http.StatusBadRequest, "new password is too weak"
		default:
			status, msg = http.StatusInternalServerError, "internal server error"
			slog.ErrorContext(r.Context(), "password change failed",
				logger.UserID(user.ID),
				logger.Error(err),
			)
		}
		h.auditor.Record(r.Context(), audit.Entry{
			Actor:          actorSnapshot(user),
			Tenant:         audit.Tenant{ID: user.TenantID},
			Kind:           audit.KindPasswordChanged,
			Module:         "auth",
			Description:    "password change failed",
			Meta:           audit.MetaFromRequest(r),
			Success:        false,
			FailureMessage: msg,
		})
		respondError(w, status, msg)
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      audit.Tenant{ID: user.TenantID},
		Kind:        audit.KindPasswordChanged,
		Module:      "auth",
		Description: "password changed",
		Meta:        audit.MetaFromRequest(r),
		Success:     true,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
