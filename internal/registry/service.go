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

package registry

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Locators become database names, so the accepted shape is strict.
var locatorPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

// Service provides tenant registry business logic.
type Service struct {
	repo Repository
}

// NewService creates a new registry service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput describes a tenant to provision.
type CreateInput struct {
	Name      string
	Locator   string
	Subdomain string
	Email     string
	Phone     string
	Address   string
	City      string
	District  string
	TaxOffice string
	TaxNumber string
}

// CreateTenant provisions a new tenant in trial state with default quotas.
func (s *Service) CreateTenant(ctx context.Context, in CreateInput) (*Tenant, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidInput)
	}
	if !locatorPattern.MatchString(in.Locator) {
		return nil, fmt.Errorf("%w: bad locator %q", ErrInvalidInput, in.Locator)
	}

	if _, err := s.repo.GetByLocator(ctx, in.Locator); err == nil {
		return nil, ErrTenantExists
	}

	now := time.Now()
	tenant := &Tenant{
		Name:              in.Name,
		Locator:           in.Locator,
		Subdomain:         in.Subdomain,
		Email:             in.Email,
		Phone:             in.Phone,
		Address:           in.Address,
		City:              in.City,
		District:          in.District,
		TaxOffice:         in.TaxOffice,
		TaxNumber:         in.TaxNumber,
		SubscriptionState: SubscriptionTrial,
		SubscriptionStart: &now,
		MaxWorksites:      DefaultMaxWorksites,
		MaxUsers:          DefaultMaxUsers,
		Active:            true,
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	return tenant, nil
}

// FindTenant retrieves a tenant by ID.
func (s *Service) FindTenant(ctx context.Context, id int64) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// FindTenantByLocator retrieves a tenant by its data-store locator.
func (s *Service) FindTenantByLocator(ctx context.Context, locator string) (*Tenant, error) {
	return s.repo.GetByLocator(ctx, locator)
}

// ListTenants lists tenants with pagination, newest first.
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// SubscriptionUpdate carries a subscription/quota change. Nil means
// "unchanged".
type SubscriptionUpdate struct {
	State        *SubscriptionState
	Start        *time.Time
	End          *time.Time
	MaxWorksites *int
	MaxUsers     *int
}

// UpdateSubscription applies a subscription or quota change to a tenant.
func (s *Service) UpdateSubscription(ctx context.Context, id int64, upd SubscriptionUpdate) (*Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.State != nil {
		if !upd.State.Valid() {
			return nil, fmt.Errorf("%w: bad subscription state %q", ErrInvalidInput, *upd.State)
		}
		tenant.SubscriptionState = *upd.State
	}
	if upd.Start != nil {
		tenant.SubscriptionStart = upd.Start
	}
	if upd.End != nil {
		tenant.SubscriptionEnd = upd.End
	}
	if upd.MaxWorksites != nil {
		tenant.MaxWorksites = *upd.MaxWorksites
	}
	if upd.MaxUsers != nil {
		tenant.MaxUsers = *upd.MaxUsers
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return tenant, nil
}

// Deactivate soft-deactivates a tenant. Repeating the call is a no-op.
func (s *Service) Deactivate(ctx context.Context, id int64) (*Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return tenant, nil
	}

	tenant.Active = false
	tenant.SubscriptionState = SubscriptionInactive
	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to deactivate tenant: %w", err)
	}
	return tenant, nil
}
