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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/config"
	"github.com/worksafe/worksafe/internal/identity"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/observability/metrics"
	"github.com/worksafe/worksafe/internal/observability/tracing"
	"github.com/worksafe/worksafe/internal/registry"
	"github.com/worksafe/worksafe/internal/store/postgres"
	"github.com/worksafe/worksafe/internal/tenantdb"
	"github.com/worksafe/worksafe/internal/token"
	transportHTTP "github.com/worksafe/worksafe/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting worksafe backend")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "bootstrap" {
		if err := runBootstrap(cfg); err != nil {
			fmt.Printf("Bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Registry database
	db, err := postgres.New(ctx, registryDBConfig(cfg))
	if err != nil {
		slog.Error("failed to connect to registry database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to registry database")

	// Tenant store resolver
	resolver := tenantdb.NewResolver(tenantdb.Config{
		Host:     cfg.TenantDB.Host,
		Port:     cfg.TenantDB.Port,
		User:     cfg.TenantDB.User,
		Password: cfg.TenantDB.Password,
		SSLMode:  cfg.TenantDB.SSLMode,
		MaxConns: cfg.TenantDB.MaxOpenConns,
		MinConns: cfg.TenantDB.MinConns,
	})
	defer resolver.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Services
	passwordHasher := newPasswordHasher(cfg)
	identityService := identity.NewService(userRepo, passwordHasher)
	registryService := registry.NewService(tenantRepo)
	tokenCodec := token.NewCodec(cfg.Token.Secret, cfg.Token.TTL)
	auditor := audit.NewRecorder(auditRepo)
	if meter != nil {
		auditWrites, err := meter.CreateCounter("audit_writes_total",
			"Audit entries persisted to the registry database")
		if err != nil {
			slog.Warn("failed to create audit write counter", logger.Error(err))
		} else {
			auditor.InstrumentWrites(auditWrites)
		}
	}
	auditQuery := audit.NewQueryService(auditRepo)

	// Rate limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// HTTP handler and router
	handler := transportHTTP.NewHandler(
		identityService,
		registryService,
		tokenCodec,
		resolver,
		auditor,
		auditQuery,
		cfg.Upload.Dir,
		cfg.Upload.MaxSizeBytes,
	)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func registryDBConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Host:         cfg.Registry.Host,
		Port:         cfg.Registry.Port,
		User:         cfg.Registry.User,
		Password:     cfg.Registry.Password,
		Database:     cfg.Registry.Database,
		SSLMode:      cfg.Registry.SSLMode,
		MaxOpenConns: cfg.Registry.MaxOpenConns,
		MaxIdleConns: cfg.Registry.MaxIdleConns,
	}
}

func newPasswordHasher(cfg *config.Config) *identity.PasswordHasher {
	return identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
}

// runMigrate applies the registry schema.
func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, registryDBConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, postgres.RegistrySchema); err != nil {
		return fmt.Errorf("registry schema: %w", err)
	}
	slog.Info("registry schema applied")
	return nil
}

// runBootstrap creates the first platform admin and, when requested, a demo
// tenant with its database schema. Driven by BOOTSTRAP_* env vars; rerunning
// against an existing admin is a no-op.
func runBootstrap(cfg *config.Config) error {
	email := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are required")
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, registryDBConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	identityService := identity.NewService(postgres.NewUserRepository(db), newPasswordHasher(cfg))
	registryService := registry.NewService(postgres.NewTenantRepository(db))

	_, err = identityService.Provision(ctx, identity.ProvisionInput{
		Email:     email,
		Password:  password,
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      identity.RolePlatformAdmin,
	})
	switch {
	case err == nil:
		slog.Info("platform admin created", logger.Email(email))
	case errors.Is(err, identity.ErrUserAlreadyExists):
		slog.Info("platform admin already exists", logger.Email(email))
	default:
		return fmt.Errorf("provision admin: %w", err)
	}

	demoLocator := os.Getenv("BOOTSTRAP_DEMO_TENANT")
	if demoLocator == "" {
		return nil
	}

	tenant, err := registryService.CreateTenant(ctx, registry.CreateInput{
		Name:    "Demo Tenant",
		Locator: demoLocator,
	})
	if err != nil {
		if errors.Is(err, registry.ErrTenantExists) {
			slog.Info("demo tenant already exists", logger.Locator(demoLocator))
			return nil
		}
		return fmt.Errorf("create demo tenant: %w", err)
	}

	// Apply the tenant schema to the demo tenant's database. The database
	// itself must already exist; locators map to database names.
	resolver := tenantdb.NewResolver(tenantdb.Config{
		Host:     cfg.TenantDB.Host,
		Port:     cfg.TenantDB.Port,
		User:     cfg.TenantDB.User,
		Password: cfg.TenantDB.Password,
		SSLMode:  cfg.TenantDB.SSLMode,
		MaxConns: cfg.TenantDB.MaxOpenConns,
		MinConns: cfg.TenantDB.MinConns,
	})
	defer resolver.Close()

	handle, err := resolver.Resolve(ctx, tenant.Locator)
	if err != nil {
		return fmt.Errorf("resolve demo tenant store: %w", err)
	}
	if err := postgres.MigrateTenant(ctx, handle.Pool()); err != nil {
		return fmt.Errorf("tenant schema: %w", err)
	}

	slog.Info("demo tenant provisioned", logger.Locator(tenant.Locator))
	return nil
}
