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

// Package company manages the client firms a tenant serves. Companies live
// in the tenant's own database, never in the central registry.
package company

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrCompanyNotFound    = errors.New("company not found")
	ErrDuplicateTaxNumber = errors.New("company with this tax number already exists")
	ErrNameRequired       = errors.New("company name is required")
	ErrHazardClassInvalid = errors.New("invalid hazard class")
)

// HazardClass is the occupational risk grade assigned to a workplace.
type HazardClass string

const (
	HazardLow    HazardClass = "low"
	HazardMedium HazardClass = "medium"
	HazardHigh   HazardClass = "high"
)

// Valid reports whether h is a known hazard class. The empty value is
// accepted: classification can lag company onboarding.
func (h HazardClass) Valid() bool {
	switch h {
	case "", HazardLow, HazardMedium, HazardHigh:
		return true
	}
	return false
}

// Company is a client firm served by the tenant.
type Company struct {
	ID            int64
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
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines persistence for companies in a tenant store.
type Repository interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id int64) (*Company, error)
	GetByTaxNumber(ctx context.Context, taxNumber string) (*Company, error)
	Update(ctx context.Context, c *Company) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Company, int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

// ListFilter narrows a company listing.
type ListFilter struct {
	Search string
	Active *bool
}
