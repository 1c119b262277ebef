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

// @title WorkSafe API
// @version 1.0.0
// @description Multi-tenant occupational health and safety backend

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/company"
	"github.com/worksafe/worksafe/internal/document"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/registry"
	"github.com/worksafe/worksafe/internal/store/postgres"
	"github.com/worksafe/worksafe/internal/tenantdb"
	"github.com/worksafe/worksafe/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	registryService *registry.Service
	tokenCodec      *token.Codec
	resolver        *tenantdb.Resolver
	auditor         *audit.Recorder
	auditQuery      *audit.QueryService
	uploadDir       string
	uploadMaxBytes  int64
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	registryService *registry.Service,
	tokenCodec *token.Codec,
	resolver *tenantdb.Resolver,
	auditor *audit.Recorder,
	auditQuery *audit.QueryService,
	uploadDir string,
	uploadMaxBytes int64,
) *Handler {
	return &Handler{
		identityService: identityService,
		registryService: registryService,
		tokenCodec:      tokenCodec,
		resolver:        resolver,
		auditor:         auditor,
		auditQuery:      auditQuery,
		uploadDir:       uploadDir,
		uploadMaxBytes:  uploadMaxBytes,
	}
}

// Roles allowed to manage tenant-scoped records.
var recordRoles = []identity.Role{
	identity.RoleTenantAdmin,
	identity.RoleSafetySpecialist,
	identity.RolePhysician,
	identity.RoleHealthStaff,
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication
		r.Post("/auth/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/change-password", h.ChangePassword)

			// Audit trail
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRoles(identity.RolePlatformAdmin, identity.RoleTenantAdmin))
				r.Get("/audit", h.ListAudit)
				r.Get("/audit/summary", h.AuditSummary)
			})

			// Tenant registry (platform only)
			r.Route("/tenants", func(r chi.Router) {
				r.Use(h.RequireRoles(identity.RolePlatformAdmin))
				r.Post("/", h.CreateTenant)
				r.Get("/", h.ListTenants)
				r.Get("/{tenantID}", h.GetTenant)
				r.Put("/{tenantID}/subscription", h.UpdateSubscription)
				r.Delete("/{tenantID}", h.DeactivateTenant)
			})

			// Tenant-scoped records
			r.Route("/companies", func(r chi.Router) {
				r.Use(h.RequireRoles(recordRoles...))
				r.Use(h.WithTenantStore)
				r.Get("/", h.ListCompanies)
				r.Post("/", h.CreateCompany)
				r.Get("/{companyID}", h.GetCompany)
				r.Put("/{companyID}", h.UpdateCompany)
				r.Delete("/{companyID}", h.DeleteCompany)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.RequireRoles(recordRoles...))
				r.Use(h.WithTenantStore)
				r.Get("/documents/{kind}/{ownerID}", h.ListDocuments)
				r.Post("/documents/{kind}/{ownerID}", h.UploadDocument)
				r.Delete("/documents/{documentID}", h.DeleteDocument)
			})
		})

		// Download accepts the token as a query parameter so plain links
		// work; every other route requires the header.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthenticateWithQueryToken)
			r.Use(h.RequireRoles(recordRoles...))
			r.Use(h.WithTenantStore)
			r.Get("/documents/download/{documentID}", h.DownloadDocument)
		})
	})

	return r
}

// auditFailure leaves the entry for a failed mutating attempt. Every
// attempt produces exactly one entry whether it succeeds or not.
func (h *Handler) auditFailure(r *http.Request, user *identity.User, kind audit.Kind, module, description, message string, target *audit.Target) {
	h.auditor.Record(r.Context(), audit.Entry{
		Actor:          actorSnapshot(user),
		Tenant:         h.tenantSnapshot(r.Context(), user),
		Kind:           kind,
		Module:         module,
		Description:    description,
		Target:         target,
		Meta:           audit.MetaFromRequest(r),
		Success:        false,
		FailureMessage: message,
	})
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Service liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "worksafe",
	})
}

// companyService builds the company service over the request's resolved
// tenant store.
func (h *Handler) companyService(handle *tenantdb.Handle) *company.Service {
	return company.NewService(postgres.NewCompanyRepository(handle.Pool()))
}

// documentService builds the document service over the request's resolved
// tenant store. Files go under a per-tenant directory.
func (h *Handler) documentService(handle *tenantdb.Handle) *document.Service {
	root := filepath.Join(h.uploadDir, handle.Locator())
	return document.NewService(postgres.NewDocumentRepository(handle.Pool()), root, h.uploadMaxBytes)
}

// pageParams reads page and size query parameters with sane defaults.
func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	return page, size
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// listResponse is the common paginated payload shape.
type listResponse struct {
	Total int64 `json:"total"`
	Items any   `json:"items"`
}
