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
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service provides identity-related business logic against the central
// registry's user store.
type Service struct {
	repo   UserRepository
	hasher *PasswordHasher
}

// NewService creates a new identity service
func NewService(repo UserRepository, hasher *PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
	}
}

// NormalizeEmail lower-cases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate verifies an email/password pair. Unknown user and wrong
// password both yield ErrInvalidCredentials so callers cannot enumerate
// accounts; an existing but deactivated user yields ErrInactiveAccount.
// On success the last-login timestamp is updated.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrInactiveAccount
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Not worth failing the login over.
		slog.WarnContext(ctx, "failed to update last login",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	user.LastLoginAt = &now

	return user, nil
}

// ProvisionInput describes a new user to create.
type ProvisionInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Title     string
	Role      Role
	TenantID  *int64
}

// Provision creates a new user. Platform admins carry no tenant; every
// other role requires one.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.Role == RolePlatformAdmin && in.TenantID != nil {
		return nil, fmt.Errorf("%w: platform admin cannot belong to a tenant", ErrInvalidRole)
	}
	if in.Role != RolePlatformAdmin && in.TenantID == nil {
		return nil, fmt.Errorf("%w: role %s requires a tenant", ErrInvalidRole, in.Role)
	}
	if !isStrongPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Title:        in.Title,
		Role:         in.Role,
		TenantID:     in.TenantID,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by case-normalized email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ProfileUpdate carries the profile fields a user may edit. Nil pointers
// mean "unchanged".
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Title     *string
}

// UpdateProfile applies a partial profile edit and returns the stored user.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.Title != nil {
		user.Title = *upd.Title
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ChangePassword changes a user's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, id, hash)
}

// Deactivate soft-deactivates a user. Repeating the call on an already
// inactive user leaves the same observable state without error.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.Active {
		return nil
	}
	return s.repo.Deactivate(ctx, id)
}

// Helper functions
func isValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && len(email) < 255
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
