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

// Package tenantdb turns a tenant locator into a live handle on that
// tenant's isolated database. One bounded connection pool is kept per
// locator; pools are shared across requests and pgxpool provides the
// per-acquire isolation, so a handle never needs per-request teardown.
package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain errors
var (
	// ErrTenantRequired means the caller presented no tenant context, e.g.
	// a platform-admin token on a tenant-scoped endpoint. A caller mistake,
	// not an infrastructure failure.
	ErrTenantRequired = errors.New("tenant context required")

	ErrInvalidLocator = errors.New("invalid tenant locator")
)

// Locators become database names in the DSN; reject anything else early.
var locatorPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

// Config holds the connection template shared by all tenant databases.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// Handle is a scoped view on one tenant's database.
type Handle struct {
	locator string
	pool    *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (h *Handle) Pool() *pgxpool.Pool {
	return h.pool
}

// Locator returns the routing key this handle was resolved for.
func (h *Handle) Locator() string {
	return h.locator
}

// Resolver maps locators to connection pools, creating them lazily and
// reusing them across requests.
type Resolver struct {
	cfg Config

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewResolver creates a resolver with the given connection template.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		cfg:   cfg,
		pools: make(map[string]*pgxpool.Pool),
	}
}

// Resolve returns a handle on the database identified by locator. An empty
// locator fails with ErrTenantRequired; a malformed one with
// ErrInvalidLocator. Both surface as client errors, never as 500s.
//
// Pools connect lazily: a locator pointing at a nonexistent database fails
// on first query, not here.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*Handle, error) {
	if locator == "" {
		return nil, ErrTenantRequired
	}
	if !locatorPattern.MatchString(locator) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[locator]; ok {
		return &Handle{locator: locator, pool: pool}, nil
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.User,
		r.cfg.Password,
		locator,
		r.cfg.SSLMode,
		r.cfg.MaxConns,
		r.cfg.MinConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tenant pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant pool: %w", err)
	}

	r.pools[locator] = pool
	return &Handle{locator: locator, pool: pool}, nil
}

// Close closes every pool. Called once at shutdown.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for locator, pool := range r.pools {
		pool.Close()
		delete(r.pools, locator)
	}
}
