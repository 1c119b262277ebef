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

// Package registry is the central store mapping tenant identity to its
// isolated data store, subscription state and quotas.
package registry

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantExists   = errors.New("tenant already exists")
	ErrInvalidInput   = errors.New("invalid tenant input")
)

// SubscriptionState enumerates the tenant lifecycle states.
type SubscriptionState string

const (
	SubscriptionTrial    SubscriptionState = "trial"
	SubscriptionActive   SubscriptionState = "active"
	SubscriptionInactive SubscriptionState = "inactive"
	SubscriptionExpired  SubscriptionState = "expired"
)

// Valid reports whether s is a known subscription state.
func (s SubscriptionState) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionInactive, SubscriptionExpired:
		return true
	}
	return false
}

// Default quotas for newly provisioned tenants.
const (
	DefaultMaxWorksites = 50
	DefaultMaxUsers     = 10
)

// Tenant is one service-provider organization. Locator is the opaque
// routing key to its isolated database; it is never interpreted here.
// Tenants are soft-deactivated, never hard-deleted.
type Tenant struct {
	ID                int64
	Name              string
	Locator           string
	Subdomain         string
	Email             string
	Phone             string
	Address           string
	City              string
	District          string
	TaxOffice         string
	TaxNumber         string
	SubscriptionState SubscriptionState
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	MaxWorksites      int
	MaxUsers          int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository defines the interface for tenant persistence.
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	GetByLocator(ctx context.Context, locator string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, int64, error)
}
