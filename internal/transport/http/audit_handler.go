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
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/record"
)

// auditFilter builds the listing filter from query parameters. Tenant
// admins are hard-scoped to their own tenant no matter what they send.
func auditFilter(r *http.Request, user *identity.User) audit.Filter {
	q := r.URL.Query()
	f := audit.Filter{
		Module:     q.Get("module"),
		Kind:       audit.Kind(q.Get("kind")),
		ActorEmail: q.Get("actor_email"),
	}

	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Success = &b
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = &t
		}
	}
	if k, err := record.ParseKind(q.Get("target_kind")); err == nil {
		f.TargetKind = k
	}
	if v := q.Get("target_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.TargetID = id
		}
	}

	if user.Role == identity.RolePlatformAdmin {
		if v := q.Get("tenant_id"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				f.TenantID = &id
			}
		}
	} else {
		f.TenantID = user.TenantID
	}
	return f
}

// ListAudit returns one page of audit entries, newest first
// @Summary List Audit Entries
// @Description List audit trail entries (Platform or Tenant Admin Only)
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param module query string false "Module filter"
// @Param kind query string false "Action kind filter"
// @Param actor_email query string false "Actor email substring filter"
// @Param success query bool false "Outcome filter"
// @Param since query string false "RFC3339 lower bound"
// @Param target_kind query string false "Target record kind"
// @Param target_id query int false "Target record ID"
// @Param page query int false "Page number"
// @Param size query int false "Page size (max 200)"
// @Success 200 {object} listResponse
// @Failure 403 {object} map[string]string
// @Router /audit [get]
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	page, size := pageParams(r)
	result, err := h.auditQuery.List(r.Context(), auditFilter(r, user), page, size)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit listing failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]auditEntryPayload, len(result.Items))
	for i, e := range result.Items {
		items[i] = toAuditEntryPayload(e)
	}
	respondJSON(w, http.StatusOK, listResponse{Total: result.Total, Items: items})
}

// AuditSummary aggregates recent audit activity
// @Summary Audit Summary
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days (default 7)"
// @Param tenant_id query int false "Tenant scope (platform admin only)"
// @Success 200 {object} audit.Summary
// @Failure 403 {object} map[string]string
// @Router /audit/summary [get]
func (h *Handler) AuditSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	var tenantID *int64
	if user.Role == identity.RolePlatformAdmin {
		if v := r.URL.Query().Get("tenant_id"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				tenantID = &id
			}
		}
	} else {
		tenantID = user.TenantID
	}

	sum, err := h.auditQuery.Summarize(r.Context(), days, tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit summary failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// auditEntryPayload is the wire shape of one audit entry.
type auditEntryPayload struct {
	ID             int64          `json:"id"`
	ActorID        *int64         `json:"actor_id"`
	ActorEmail     string         `json:"actor_email"`
	ActorRole      string         `json:"actor_role"`
	ActorName      string         `json:"actor_name"`
	TenantID       *int64         `json:"tenant_id"`
	TenantName     string         `json:"tenant_name"`
	Kind           string         `json:"kind"`
	Module         string         `json:"module"`
	Description    string         `json:"description"`
	Target         *record.Ref    `json:"target,omitempty"`
	Before         map[string]any `json:"before,omitempty"`
	After          map[string]any `json:"after,omitempty"`
	InternalIP     string         `json:"internal_ip"`
	ExternalIP     string         `json:"external_ip"`
	UserAgent      string         `json:"user_agent"`
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Success        bool           `json:"success"`
	FailureMessage string         `json:"failure_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toAuditEntryPayload(e *audit.Entry) auditEntryPayload {
	p := auditEntryPayload{
		ID:             e.ID,
		ActorID:        e.Actor.ID,
		ActorEmail:     e.Actor.Email,
		ActorRole:      e.Actor.Role,
		ActorName:      e.Actor.Name,
		TenantID:       e.Tenant.ID,
		TenantName:     e.Tenant.Name,
		Kind:           string(e.Kind),
		Module:         e.Module,
		Description:    e.Description,
		Before:         e.Before,
		After:          e.After,
		InternalIP:     e.Meta.InternalIP,
		ExternalIP:     e.Meta.ExternalIP,
		UserAgent:      e.Meta.UserAgent,
		Method:         e.Meta.Method,
		Path:           e.Meta.Path,
		Success:        e.Success,
		FailureMessage: e.FailureMessage,
		CreatedAt:      e.CreatedAt,
	}
	if e.Target != nil {
		p.Target = &record.Ref{Kind: e.Target.Kind, ID: e.Target.ID}
	}
	return p
}
