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
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/record"
	"github.com/worksafe/worksafe/internal/registry"
)

// CreateTenantRequest represents a new tenant registration
type CreateTenantRequest struct {
	Name      string `json:"name"`
	Locator   string `json:"locator"`
	Subdomain string `json:"subdomain"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	District  string `json:"district"`
	TaxOffice string `json:"tax_office"`
	TaxNumber string `json:"tax_number"`
}

// tenantPayload is the wire shape of a tenant.
type tenantPayload struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Locator           string     `json:"locator"`
	Subdomain         string     `json:"subdomain"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	City              string     `json:"city"`
	District          string     `json:"district"`
	SubscriptionState string     `json:"subscription_state"`
	SubscriptionStart *time.Time `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
	MaxWorksites      int        `json:"max_worksites"`
	MaxUsers          int        `json:"max_users"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toTenantPayload(t *registry.Tenant) tenantPayload {
	return tenantPayload{
		ID:                t.ID,
		Name:              t.Name,
		Locator:           t.Locator,
		Subdomain:         t.Subdomain,
		Email:             t.Email,
		Phone:             t.Phone,
		City:              t.City,
		District:          t.District,
		SubscriptionState: string(t.SubscriptionState),
		SubscriptionStart: t.SubscriptionStart,
		SubscriptionEnd:   t.SubscriptionEnd,
		MaxWorksites:      t.MaxWorksites,
		MaxUsers:          t.MaxUsers,
		Active:            t.Active,
		CreatedAt:         t.CreatedAt,
	}
}

func tenantIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
}

// CreateTenant registers a new tenant in trial state
// @Summary Create Tenant
// @Description Register a new tenant (Platform Admin Only)
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenant body CreateTenantRequest true "Tenant data"
// @Success 201 {object} tenantPayload
// @Failure 400 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.registryService.CreateTenant(r.Context(), registry.CreateInput{
		Name:      req.Name,
		Locator:   req.Locator,
		Subdomain: req.Subdomain,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		District:  req.District,
		TaxOffice: req.TaxOffice,
		TaxNumber: req.TaxNumber,
	})
	if err != nil {
		status := http.StatusBadRequest
		var msg string
		switch {
		case errors.Is(err, registry.ErrTenantExists):
			msg = "tenant locator is already in use"
		case errors.Is(err, registry.ErrInvalidInput):
			msg = err.Error()
		default:
			status = http.StatusInternalServerError
			msg = "internal server error"
			slog.ErrorContext(r.Context(), "tenant creation failed", logger.Error(err))
		}
		h.auditFailure(r, user, audit.KindRecordCreated, "tenants",
			"tenant creation failed", err.Error(), nil)
		respondError(w, status, msg)
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      audit.Tenant{ID: &tenant.ID, Name: tenant.Name},
		Kind:        audit.KindRecordCreated,
		Module:      "tenants",
		Description: "tenant created",
		Target:      &audit.Target{Kind: record.KindTenant, ID: tenant.ID},
		After: map[string]any{
			"name":    tenant.Name,
			"locator": tenant.Locator,
			"state":   string(tenant.SubscriptionState),
		},
		Meta:    audit.MetaFromRequest(r),
		Success: true,
	})

	respondJSON(w, http.StatusCreated, toTenantPayload(tenant))
}

// ListTenants returns one page of tenants
// @Summary List Tenants
// @Description List all platform tenants (Platform Admin Only)
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param size query int false "Page size (max 100)"
// @Success 200 {object} listResponse
// @Failure 403 {object} map[string]string
// @Router /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	tenants, total, err := h.registryService.ListTenants(r.Context(), size, (page-1)*size)
	if err != nil {
		slog.ErrorContext(r.Context(), "tenant listing failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]tenantPayload, len(tenants))
	for i, t := range tenants {
		items[i] = toTenantPayload(t)
	}
	respondJSON(w, http.StatusOK, listResponse{Total: total, Items: items})
}

// GetTenant returns one tenant by ID
// @Summary Get Tenant
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Success 200 {object} tenantPayload
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := h.registryService.FindTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "tenant lookup failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toTenantPayload(tenant))
}

// UpdateSubscriptionRequest represents a subscription or quota change
type UpdateSubscriptionRequest struct {
	State        *string    `json:"state"`
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
	MaxWorksites *int       `json:"max_worksites"`
	MaxUsers     *int       `json:"max_users"`
}

// UpdateSubscription applies a subscription change to a tenant
// @Summary Update Subscription
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param subscription body UpdateSubscriptionRequest true "Subscription change"
// @Success 200 {object} tenantPayload
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/subscription [put]
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := registry.SubscriptionUpdate{
		Start:        req.Start,
		End:          req.End,
		MaxWorksites: req.MaxWorksites,
		MaxUsers:     req.MaxUsers,
	}
	if req.State != nil {
		state := registry.SubscriptionState(*req.State)
		upd.State = &state
	}

	tenant, err := h.registryService.UpdateSubscription(r.Context(), id, upd)
	if err != nil {
		status := http.StatusBadRequest
		var msg string
		switch {
		case errors.Is(err, registry.ErrTenantNotFound):
			status = http.StatusNotFound
			msg = "tenant not found"
		case errors.Is(err, registry.ErrInvalidInput):
			msg = err.Error()
		default:
			status = http.StatusInternalServerError
			msg = "internal server error"
			slog.ErrorContext(r.Context(), "subscription update failed", logger.Error(err))
		}
		h.auditFailure(r, user, audit.KindRecordUpdated, "tenants",
			"tenant subscription update failed", err.Error(),
			&audit.Target{Kind: record.KindTenant, ID: id})
		respondError(w, status, msg)
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      audit.Tenant{ID: &tenant.ID, Name: tenant.Name},
		Kind:        audit.KindRecordUpdated,
		Module:      "tenants",
		Description: "tenant subscription updated",
		Target:      &audit.Target{Kind: record.KindTenant, ID: tenant.ID},
		After: map[string]any{
			"state":         string(tenant.SubscriptionState),
			"max_worksites": tenant.MaxWorksites,
			"max_users":     tenant.MaxUsers,
		},
		Meta:    audit.MetaFromRequest(r),
		Success: true,
	})

	respondJSON(w, http.StatusOK, toTenantPayload(tenant))
}

// DeactivateTenant disables a tenant. The tenant's data stays in place;
// only logins stop working.
// @Summary Deactivate Tenant
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Success 200 {object} tenantPayload
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [delete]
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := h.registryService.Deactivate(r.Context(), id)
	if err != nil {
		target := &audit.Target{Kind: record.KindTenant, ID: id}
		if errors.Is(err, registry.ErrTenantNotFound) {
			h.auditFailure(r, user, audit.KindRecordDeleted, "tenants",
				"tenant deactivation failed", "tenant not found", target)
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "tenant deactivation failed", logger.Error(err))
		h.auditFailure(r, user, audit.KindRecordDeleted, "tenants",
			"tenant deactivation failed", err.Error(), target)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      audit.Tenant{ID: &tenant.ID, Name: tenant.Name},
		Kind:        audit.KindRecordDeleted,
		Module:      "tenants",
		Description: "tenant deactivated",
		Target:      &audit.Target{Kind: record.KindTenant, ID: tenant.ID},
		Meta:        audit.MetaFromRequest(r),
		Success:     true,
	})

	respondJSON(w, http.StatusOK, toTenantPayload(tenant))
}
