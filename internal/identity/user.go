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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is deactivated")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("invalid role")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrForbidden          = errors.New("operation not permitted for this role")
)

// Role is one of the closed set of user roles. There is no hierarchy:
// each protected operation names its allowed roles explicitly.
type Role string

const (
	RolePlatformAdmin        Role = "platform_admin"
	RoleTenantAdmin          Role = "tenant_admin"
	RoleSafetySpecialist     Role = "safety_specialist"
	RolePhysician            Role = "occupational_physician"
	RoleHealthStaff          Role = "health_staff"
	RoleClientRepresentative Role = "client_representative"
	RoleEmployee             Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePlatformAdmin, RoleTenantAdmin, RoleSafetySpecialist,
		RolePhysician, RoleHealthStaff, RoleClientRepresentative, RoleEmployee:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// User represents a user identity. TenantID is nil only for platform
// admins; every other role belongs to exactly one tenant. Users are
// soft-deactivated, never hard-deleted.
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Phone         string
	Title         string
	Role          Role
	TenantID      *int64
	Active        bool
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName returns the name snapshotted into audit entries.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RequireRole checks the user's role against the allowed set for one
// protected operation.
func RequireRole(u *User, allowed ...Role) error {
	for _, r := range allowed {
		if u.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// UserRepository defines the interface for user persistence in the registry.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail looks up a user by case-normalized email across all tenants.
	GetByEmail(ctx context.Context, email string) (*User, error)

	Update(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Deactivate soft-deactivates a user. Deactivating an already-inactive
	// user is a no-op.
	Deactivate(ctx context.Context, id int64) error
}
