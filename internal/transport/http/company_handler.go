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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/company"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/record"
)

// tenantSnapshot resolves the audit tenant snapshot for a tenant-scoped
// request. A registry miss degrades to an ID-only snapshot rather than
// failing the operation.
func (h *Handler) tenantSnapshot(ctx context.Context, user *identity.User) audit.Tenant {
	if user == nil || user.TenantID == nil {
		return audit.Tenant{}
	}
	tenant, err := h.registryService.FindTenant(ctx, *user.TenantID)
	if err != nil {
		return audit.Tenant{ID: user.TenantID}
	}
	return audit.Tenant{ID: &tenant.ID, Name: tenant.Name}
}

// CompanyRequest represents company creation data
type CompanyRequest struct {
	Name          string `json:"name"`
	TaxOffice     string `json:"tax_office"`
	TaxNumber     string `json:"tax_number"`
	Address       string `json:"address"`
	City          string `json:"city"`
	District      string `json:"district"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	ContactName   string `json:"contact_name"`
	HazardClass   string `json:"hazard_class"`
	NACECode      string `json:"nace_code"`
	EmployeeCount int    `json:"employee_count"`
}

// CompanyUpdateRequest represents a partial company update. Absent fields
// are left untouched.
type CompanyUpdateRequest struct {
	Name          *string `json:"name"`
	TaxOffice     *string `json:"tax_office"`
	TaxNumber     *string `json:"tax_number"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	District      *string `json:"district"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	ContactName   *string `json:"contact_name"`
	HazardClass   *string `json:"hazard_class"`
	NACECode      *string `json:"nace_code"`
	EmployeeCount *int    `json:"employee_count"`
	Active        *bool   `json:"active"`
}

// companyPayload is the wire shape of a company.
type companyPayload struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TaxOffice     string    `json:"tax_office"`
	TaxNumber     string    `json:"tax_number"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	District      string    `json:"district"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	ContactName   string    `json:"contact_name"`
	HazardClass   string    `json:"hazard_class"`
	NACECode      string    `json:"nace_code"`
	EmployeeCount int       `json:"employee_count"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCompanyPayload(c *company.Company) companyPayload {
	return companyPayload{
		ID:            c.ID,
		Name:          c.Name,
		TaxOffice:     c.TaxOffice,
		TaxNumber:     c.TaxNumber,
		Address:       c.Address,
		City:          c.City,
		District:      c.District,
		Phone:         c.Phone,
		Email:         c.Email,
		ContactName:   c.ContactName,
		HazardClass:   string(c.HazardClass),
		NACECode:      c.NACECode,
		EmployeeCount: c.EmployeeCount,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func companyIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
}

// ListCompanies returns one page of companies in the tenant store
// @Summary List Companies
// @Description List client companies in the tenant store
// @Tags Company
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name substring filter"
// @Param active query bool false "Active flag filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size (max 100)"
// @Success 200 {object} listResponse
// @Failure 403 {object} map[string]string
// @Router /companies [get]
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	f := company.ListFilter{Search: r.URL.Query().Get("search")}
	if v := r.URL.Query().Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}

	page, size := pageParams(r)
	companies, total, err := h.companyService(handle).List(r.Context(), f, page, size)
	if err != nil {
		slog.ErrorContext(r.Context(), "company listing failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]companyPayload, len(companies))
	for i, c := range companies {
		items[i] = toCompanyPayload(c)
	}
	respondJSON(w, http.StatusOK, listResponse{Total: total, Items: items})
}

// GetCompany returns one company by ID
// @Summary Get Company
// @Tags Company
// @Produce json
// @Security BearerAuth
// @Param companyID path int true "Company ID"
// @Success 200 {object} companyPayload
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [get]
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	id, err := companyIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	c, err := h.companyService(handle).Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		slog.ErrorContext(r.Context(), "company lookup failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toCompanyPayload(c))
}

// CreateCompany registers a new company in the tenant store. The audit
// entry carries the full submitted payload as the after state.
// @Summary Create Company
// @Tags Company
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param company body CompanyRequest true "Company data"
// @Success 201 {object} companyPayload
// @Failure 400 {object} map[string]string
// @Router /companies [post]
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.companyService(handle).Create(r.Context(), company.CreateInput{
		Name:          req.Name,
		TaxOffice:     req.TaxOffice,
		TaxNumber:     req.TaxNumber,
		Address:       req.Address,
		City:          req.City,
		District:      req.District,
		Phone:         req.Phone,
		Email:         req.Email,
		ContactName:   req.ContactName,
		HazardClass:   company.HazardClass(req.HazardClass),
		NACECode:      req.NACECode,
		EmployeeCount: req.EmployeeCount,
	})
	if err != nil {
		status := http.StatusBadRequest
		var msg string
		auditMsg := ""
		switch {
		case errors.Is(err, company.ErrDuplicateTaxNumber):
			msg = "company with this tax number already exists"
		case errors.Is(err, company.ErrNameRequired):
			msg = "company name is required"
		case errors.Is(err, company.ErrHazardClassInvalid):
			msg = "invalid hazard class"
		default:
			// Infrastructure failure. The caller gets a generic body,
			// the audit trail keeps the detail.
			status = http.StatusInternalServerError
			msg = "internal server error"
			auditMsg = err.Error()
			slog.ErrorContext(r.Context(), "company creation failed",
				logger.Locator(handle.Locator()),
				logger.Error(err),
			)
		}
		if auditMsg == "" {
			auditMsg = msg
		}
		h.auditFailure(r, user, audit.KindRecordCreated, "companies",
			"company creation failed", auditMsg, nil)
		respondError(w, status, msg)
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      h.tenantSnapshot(r.Context(), user),
		Kind:        audit.KindRecordCreated,
		Module:      "companies",
		Description: "company created",
		Target:      &audit.Target{Kind: record.KindCompany, ID: c.ID},
		After: map[string]any{
			"name":           c.Name,
			"tax_office":     c.TaxOffice,
			"tax_number":     c.TaxNumber,
			"address":        c.Address,
			"city":           c.City,
			"district":       c.District,
			"phone":          c.Phone,
			"email":          c.Email,
			"contact_name":   c.ContactName,
			"hazard_class":   string(c.HazardClass),
			"nace_code":      c.NACECode,
			"employee_count": c.EmployeeCount,
		},
		Meta:    audit.MetaFromRequest(r),
		Success: true,
	})

	respondJSON(w, http.StatusCreated, toCompanyPayload(c))
}

// UpdateCompany applies a partial update. The audit entry carries only the
// fields that were submitted and actually changed.
// @Summary Update Company
// @Tags Company
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param companyID path int true "Company ID"
// @Param company body CompanyUpdateRequest true "Changed fields"
// @Success 200 {object} companyPayload
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [put]
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	id, err := companyIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	var req CompanyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := company.UpdateInput{
		Name:          req.Name,
		TaxOffice:     req.TaxOffice,
		TaxNumber:     req.TaxNumber,
		Address:       req.Address,
		City:          req.City,
		District:      req.District,
		Phone:         req.Phone,
		Email:         req.Email,
		ContactName:   req.ContactName,
		NACECode:      req.NACECode,
		EmployeeCount: req.EmployeeCount,
		Active:        req.Active,
	}
	if req.HazardClass != nil {
		hc := company.HazardClass(*req.HazardClass)
		upd.HazardClass = &hc
	}

	c, diff, err := h.companyService(handle).Update(r.Context(), id, upd)
	if err != nil {
		status := http.StatusBadRequest
		var msg string
		auditMsg := ""
		switch {
		case errors.Is(err, company.ErrCompanyNotFound):
			status = http.StatusNotFound
			msg = "company not found"
		case errors.Is(err, company.ErrDuplicateTaxNumber):
			msg = "company with this tax number already exists"
		case errors.Is(err, company.ErrNameRequired):
			msg = "company name is required"
		case errors.Is(err, company.ErrHazardClassInvalid):
			msg = "invalid hazard class"
		default:
			status = http.StatusInternalServerError
			msg = "internal server error"
			auditMsg = err.Error()
			slog.ErrorContext(r.Context(), "company update failed",
				logger.Locator(handle.Locator()),
				logger.Error(err),
			)
		}
		if auditMsg == "" {
			auditMsg = msg
		}
		h.auditFailure(r, user, audit.KindRecordUpdated, "companies",
			"company update failed", auditMsg,
			&audit.Target{Kind: record.KindCompany, ID: id})
		respondError(w, status, msg)
		return
	}

	if !diff.Empty() {
		h.auditor.Record(r.Context(), audit.Entry{
			Actor:       actorSnapshot(user),
			Tenant:      h.tenantSnapshot(r.Context(), user),
			Kind:        audit.KindRecordUpdated,
			Module:      "companies",
			Description: "company updated",
			Target:      &audit.Target{Kind: record.KindCompany, ID: c.ID},
			Before:      diff.Before,
			After:       diff.After,
			Meta:        audit.MetaFromRequest(r),
			Success:     true,
		})
	}

	respondJSON(w, http.StatusOK, toCompanyPayload(c))
}

// DeleteCompany soft-deletes a company
// @Summary Delete Company
// @Tags Company
// @Produce json
// @Security BearerAuth
// @Param companyID path int true "Company ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [delete]
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	id, err := companyIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	if err := h.companyService(handle).Delete(r.Context(), id); err != nil {
		target := &audit.Target{Kind: record.KindCompany, ID: id}
		if errors.Is(err, company.ErrCompanyNotFound) {
			h.auditFailure(r, user, audit.KindRecordDeleted, "companies",
				"company deletion failed", "company not found", target)
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		slog.ErrorContext(r.Context(), "company deletion failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		h.auditFailure(r, user, audit.KindRecordDeleted, "companies",
			"company deletion failed", err.Error(), target)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      h.tenantSnapshot(r.Context(), user),
		Kind:        audit.KindRecordDeleted,
		Module:      "companies",
		Description: "company deleted",
		Target:      &audit.Target{Kind: record.KindCompany, ID: id},
		Meta:        audit.MetaFromRequest(r),
		Success:     true,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
