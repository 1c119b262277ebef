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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/worksafe/worksafe/internal/registry"
)

// TenantRepository implements registry.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, locator, subdomain, email, phone, address, city, district,
	tax_office, tax_number, subscription_state, subscription_start, subscription_end,
	max_worksites, max_users, active, created_at, updated_at`

func scanTenant(row pgx.Row) (*registry.Tenant, error) {
	var t registry.Tenant
	var subStart, subEnd sql.NullTime

	err := row.Scan(
		&t.ID, &t.Name, &t.Locator, &t.Subdomain, &t.Email, &t.Phone,
		&t.Address, &t.City, &t.District, &t.TaxOffice, &t.TaxNumber,
		&t.SubscriptionState, &subStart, &subEnd,
		&t.MaxWorksites, &t.MaxUsers, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if subStart.Valid {
		t.SubscriptionStart = &subStart.Time
	}
	if subEnd.Valid {
		t.SubscriptionEnd = &subEnd.Time
	}
	return &t, nil
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, tenant *registry.Tenant) error {
	now := time.Now()
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO tenants (
			name, locator, subdomain, email, phone, address, city, district,
			tax_office, tax_number, subscription_state, subscription_start,
			subscription_end, max_worksites, max_users, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`,
		tenant.Name, tenant.Locator, tenant.Subdomain, tenant.Email, tenant.Phone,
		tenant.Address, tenant.City, tenant.District, tenant.TaxOffice, tenant.TaxNumber,
		tenant.SubscriptionState, tenant.SubscriptionStart, tenant.SubscriptionEnd,
		tenant.MaxWorksites, tenant.MaxUsers, tenant.Active, now, now,
	).Scan(&tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*registry.Tenant, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id)
	return scanTenant(row)
}

// GetByLocator retrieves a tenant by its database locator
func (r *TenantRepository) GetByLocator(ctx context.Context, locator string) (*registry.Tenant, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE locator = $1
	`, locator)
	return scanTenant(row)
}

// Update updates tenant information
func (r *TenantRepository) Update(ctx context.Context, tenant *registry.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET
			name = $2,
			subdomain = $3,
			email = $4,
			phone = $5,
			address = $6,
			city = $7,
			district = $8,
			tax_office = $9,
			tax_number = $10,
			subscription_state = $11,
			subscription_start = $12,
			subscription_end = $13,
			max_worksites = $14,
			max_users = $15,
			active = $16,
			updated_at = NOW()
		WHERE id = $1
	`,
		tenant.ID, tenant.Name, tenant.Subdomain, tenant.Email, tenant.Phone,
		tenant.Address, tenant.City, tenant.District, tenant.TaxOffice, tenant.TaxNumber,
		tenant.SubscriptionState, tenant.SubscriptionStart, tenant.SubscriptionEnd,
		tenant.MaxWorksites, tenant.MaxUsers, tenant.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return registry.ErrTenantNotFound
	}
	return nil
}

// List returns one page of tenants newest first plus the total count
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*registry.Tenant, int64, error) {
	var total int64
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*registry.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read tenants: %w", err)
	}
	return tenants, total, nil
}
