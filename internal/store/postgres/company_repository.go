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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worksafe/worksafe/internal/company"
)

// CompanyRepository implements company.Repository against one tenant's
// database. Unlike the registry repositories it is bound to a resolved
// pool, not the shared registry DB.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a company repository over a tenant pool
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

const companyColumns = `id, name, tax_office, tax_number, address, city, district,
	phone, email, contact_name, hazard_class, nace_code, employee_count,
	active, created_at, updated_at`

func scanCompany(row pgx.Row) (*company.Company, error) {
	var c company.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.TaxOffice, &c.TaxNumber, &c.Address, &c.City,
		&c.District, &c.Phone, &c.Email, &c.ContactName, &c.HazardClass,
		&c.NACECode, &c.EmployeeCount, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (
			name, tax_office, tax_number, address, city, district,
			phone, email, contact_name, hazard_class, nace_code,
			employee_count, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`,
		c.Name, c.TaxOffice, c.TaxNumber, c.Address, c.City, c.District,
		c.Phone, c.Email, c.ContactName, c.HazardClass, c.NACECode,
		c.EmployeeCount, c.Active, now, now,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}

	c.CreatedAt = now
	c.UpdatedAt = now

	return nil
}

// GetByID retrieves an active company by ID. Soft-deleted companies are
// invisible here.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*company.Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE id = $1 AND active = TRUE
	`, id)
	return scanCompany(row)
}

// GetByTaxNumber retrieves an active company by tax number
func (r *CompanyRepository) GetByTaxNumber(ctx context.Context, taxNumber string) (*company.Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE tax_number = $1 AND active = TRUE
	`, taxNumber)
	return scanCompany(row)
}

// Update updates company information
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE companies SET
			name = $2,
			tax_office = $3,
			tax_number = $4,
			address = $5,
			city = $6,
			district = $7,
			phone = $8,
			email = $9,
			contact_name = $10,
			hazard_class = $11,
			nace_code = $12,
			employee_count = $13,
			active = $14,
			updated_at = NOW()
		WHERE id = $1
	`,
		c.ID, c.Name, c.TaxOffice, c.TaxNumber, c.Address, c.City, c.District,
		c.Phone, c.Email, c.ContactName, c.HazardClass, c.NACECode,
		c.EmployeeCount, c.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	if result.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}
	return nil
}

// List returns one page of companies plus the total match count
func (r *CompanyRepository) List(ctx context.Context, f company.ListFilter, limit, offset int) ([]*company.Company, int64, error) {
	where := "WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Active != nil {
		where += " AND active = " + arg(*f.Active)
	}
	if f.Search != "" {
		where += " AND name ILIKE " + arg("%"+f.Search+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count companies: %w", err)
	}

	query := "SELECT " + companyColumns + " FROM companies " + where +
		fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read companies: %w", err)
	}
	return companies, total, nil
}

// SoftDelete marks a company inactive, keeping the row for history
func (r *CompanyRepository) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE companies SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}
