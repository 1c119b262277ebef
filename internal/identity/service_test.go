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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a simple in-memory implementation of UserRepository
type MockUserRepository struct {
	users  map[int64]*User
	nextID int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[int64]*User), nextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) error {
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *User) error {
	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Active = false
	return nil
}

func newTestService() (*Service, *MockUserRepository) {
	repo := NewMockUserRepository()
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)
	return NewService(repo, hasher), repo
}

func provisionTestUser(t *testing.T, svc *Service, email, password string, role Role, tenantID *int64) *User {
	t.Helper()
	user, err := svc.Provision(context.Background(), ProvisionInput{
		Email:     email,
		Password:  password,
		FirstName: "Ayse",
		LastName:  "Demir",
		Role:      role,
		TenantID:  tenantID,
	})
	require.NoError(t, err)
	return user
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)
	provisionTestUser(t, svc, "specialist@demo.example", "correct-horse", RoleSafetySpecialist, &tenantID)

	user, err := svc.Authenticate(context.Background(), "Specialist@Demo.Example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "specialist@demo.example", user.Email)
	assert.NotNil(t, user.LastLoginAt)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)
	provisionTestUser(t, svc, "specialist@demo.example", "correct-horse", RoleSafetySpecialist, &tenantID)

	_, err := svc.Authenticate(context.Background(), "specialist@demo.example", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Authenticate(context.Background(), "nobody@demo.example", "whatever1")
	// Same error as wrong password, so callers cannot enumerate accounts.
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)
	user := provisionTestUser(t, svc, "gone@demo.example", "correct-horse", RoleEmployee, &tenantID)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))

	_, err := svc.Authenticate(context.Background(), "gone@demo.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestProvisionValidation(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)

	_, err := svc.Provision(context.Background(), ProvisionInput{
		Email: "bad-email", Password: "long-enough", Role: RoleEmployee, TenantID: &tenantID,
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Provision(context.Background(), ProvisionInput{
		Email: "ok@demo.example", Password: "short", Role: RoleEmployee, TenantID: &tenantID,
	})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Provision(context.Background(), ProvisionInput{
		Email: "ok@demo.example", Password: "long-enough", Role: Role("superuser"), TenantID: &tenantID,
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	// Platform admin must not carry a tenant; everyone else must.
	_, err = svc.Provision(context.Background(), ProvisionInput{
		Email: "root@worksafe.example", Password: "long-enough", Role: RolePlatformAdmin, TenantID: &tenantID,
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Provision(context.Background(), ProvisionInput{
		Email: "orphan@demo.example", Password: "long-enough", Role: RoleEmployee,
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestProvisionDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)
	provisionTestUser(t, svc, "dup@demo.example", "correct-horse", RoleEmployee, &tenantID)

	_, err := svc.Provision(context.Background(), ProvisionInput{
		Email: "DUP@demo.example", Password: "correct-horse", Role: RoleEmployee, TenantID: &tenantID,
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	tenantID := int64(1)
	user := provisionTestUser(t, svc, "pw@demo.example", "old-password", RoleTenantAdmin, &tenantID)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong-old", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), user.ID, "old-password", "new-password")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "pw@demo.example", "new-password")
	assert.NoError(t, err)
}

func TestDeactivateIdempotent(t *testing.T) {
	svc, repo := newTestService()
	tenantID := int64(1)
	user := provisionTestUser(t, svc, "twice@demo.example", "correct-horse", RoleEmployee, &tenantID)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))
	require.NoError(t, svc.Deactivate(context.Background(), user.ID))

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestRequireRole(t *testing.T) {
	u := &User{Role: RoleTenantAdmin}

	assert.NoError(t, RequireRole(u, RolePlatformAdmin, RoleTenantAdmin))
	assert.ErrorIs(t, RequireRole(u, RolePlatformAdmin), ErrForbidden)
}

func TestHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	encoded, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	ok, err := hasher.Verify("s3cret-password", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("other-password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Verify("whatever", "not-an-encoded-hash")
	assert.Error(t, err)
}
