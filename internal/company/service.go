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

package company

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service implements company business logic over a Repository.
type Service struct {
	repo Repository
}

// NewService creates a company service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields for a new company.
type CreateInput struct {
	Name          string
	TaxOffice     string
	TaxNumber     string
	Address       string
	City          string
	District      string
	Phone         string
	Email         string
	ContactName   string
	HazardClass   HazardClass
	NACECode      string
	EmployeeCount int
}

// Create registers a new company. The tax number, when given, must be unique
// within the tenant.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !in.HazardClass.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrHazardClassInvalid, in.HazardClass)
	}

	if in.TaxNumber != "" {
		existing, err := s.repo.GetByTaxNumber(ctx, in.TaxNumber)
		if err != nil && !errors.Is(err, ErrCompanyNotFound) {
			return nil, fmt.Errorf("failed to check tax number: %w", err)
		}
		if existing != nil {
			return nil, ErrDuplicateTaxNumber
		}
	}

	now := time.Now().UTC()
	c := &Company{
		Name:          name,
		TaxOffice:     in.TaxOffice,
		TaxNumber:     in.TaxNumber,
		Address:       in.Address,
		City:          in.City,
		District:      in.District,
		Phone:         in.Phone,
		Email:         in.Email,
		ContactName:   in.ContactName,
		HazardClass:   in.HazardClass,
		NACECode:      in.NACECode,
		EmployeeCount: in.EmployeeCount,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}

// Get retrieves a company by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of companies plus the unpaginated total.
func (s *Service) List(ctx context.Context, f ListFilter, page, size int) ([]*Company, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return s.repo.List(ctx, f, size, (page-1)*size)
}

// UpdateInput carries a partial company update. Nil fields were not
// submitted and stay untouched.
type UpdateInput struct {
	Name          *string
	TaxOffice     *string
	TaxNumber     *string
	Address       *string
	City          *string
	District      *string
	Phone         *string
	Email         *string
	ContactName   *string
	HazardClass   *HazardClass
	NACECode      *string
	EmployeeCount *int
	Active        *bool
}

// Diff is the audit-facing change set of an update: only fields that were
// submitted and actually changed appear, keyed identically in both maps.
type Diff struct {
	Before map[string]any
	After  map[string]any
}

// Empty reports whether the update changed nothing.
func (d Diff) Empty() bool {
	return len(d.After) == 0
}

// Update applies a partial update and returns the fresh record plus the
// per-field change set.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Company, Diff, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, Diff{}, err
	}

	diff := Diff{Before: make(map[string]any), After: make(map[string]any)}
	change := func(field string, before, after any) {
		diff.Before[field] = before
		diff.After[field] = after
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, Diff{}, ErrNameRequired
		}
		if name != c.Name {
			change("name", c.Name, name)
			c.Name = name
		}
	}
	if in.TaxOffice != nil && *in.TaxOffice != c.TaxOffice {
		change("tax_office", c.TaxOffice, *in.TaxOffice)
		c.TaxOffice = *in.TaxOffice
	}
	if in.TaxNumber != nil && *in.TaxNumber != c.TaxNumber {
		if *in.TaxNumber != "" {
			existing, err := s.repo.GetByTaxNumber(ctx, *in.TaxNumber)
			if err != nil && !errors.Is(err, ErrCompanyNotFound) {
				return nil, Diff{}, fmt.Errorf("failed to check tax number: %w", err)
			}
			if existing != nil && existing.ID != c.ID {
				return nil, Diff{}, ErrDuplicateTaxNumber
			}
		}
		change("tax_number", c.TaxNumber, *in.TaxNumber)
		c.TaxNumber = *in.TaxNumber
	}
	if in.Address != nil && *in.Address != c.Address {
		change("address", c.Address, *in.Address)
		c.Address = *in.Address
	}
	if in.City != nil && *in.City != c.City {
		change("city", c.City, *in.City)
		c.City = *in.City
	}
	if in.District != nil && *in.District != c.District {
		change("district", c.District, *in.District)
		c.District = *in.District
	}
	if in.Phone != nil && *in.Phone != c.Phone {
		change("phone", c.Phone, *in.Phone)
		c.Phone = *in.Phone
	}
	if in.Email != nil && *in.Email != c.Email {
		change("email", c.Email, *in.Email)
		c.Email = *in.Email
	}
	if in.ContactName != nil && *in.ContactName != c.ContactName {
		change("contact_name", c.ContactName, *in.ContactName)
		c.ContactName = *in.ContactName
	}
	if in.HazardClass != nil && *in.HazardClass != c.HazardClass {
		if !in.HazardClass.Valid() {
			return nil, Diff{}, fmt.Errorf("%w: %q", ErrHazardClassInvalid, *in.HazardClass)
		}
		change("hazard_class", string(c.HazardClass), string(*in.HazardClass))
		c.HazardClass = *in.HazardClass
	}
	if in.NACECode != nil && *in.NACECode != c.NACECode {
		change("nace_code", c.NACECode, *in.NACECode)
		c.NACECode = *in.NACECode
	}
	if in.EmployeeCount != nil && *in.EmployeeCount != c.EmployeeCount {
		change("employee_count", c.EmployeeCount, *in.EmployeeCount)
		c.EmployeeCount = *in.EmployeeCount
	}
	if in.Active != nil && *in.Active != c.Active {
		change("active", c.Active, *in.Active)
		c.Active = *in.Active
	}

	if diff.Empty() {
		return c, diff, nil
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, Diff{}, fmt.Errorf("failed to update company: %w", err)
	}
	return c, diff, nil
}

// Delete soft-deletes a company. Deleting an already deleted company is a
// no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}
