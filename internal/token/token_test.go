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

package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	tenantID := int64(7)
	issued, err := codec.Issue(Claims{
		UserID:   42,
		Role:     "safety_specialist",
		TenantID: &tenantID,
		Locator:  "tenant_demo",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "specialist@demo.example",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, issued)

	claims, err := codec.Verify(issued)
	require.NoError(t, err)
	assert.Equal(t, "specialist@demo.example", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "safety_specialist", claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, int64(7), *claims.TenantID)
	assert.Equal(t, "tenant_demo", claims.Locator)
}

func TestVerifyPlatformAdminHasNoTenant(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	issued, err := codec.Issue(Claims{
		UserID: 1,
		Role:   "platform_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "root@worksafe.example",
		},
	})
	require.NoError(t, err)

	claims, err := codec.Verify(issued)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.Empty(t, claims.Locator)
}

func TestVerifyExpired(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	issued, err := codec.Issue(Claims{
		UserID: 1,
		Role:   "tenant_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "admin@demo.example",
		},
	}, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(issued)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)
	other := NewCodec("ffffffffffffffffffffffffffffffff", time.Hour)

	issued, err := other.Issue(Claims{
		UserID: 1,
		Role:   "tenant_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "admin@demo.example",
		},
	})
	require.NoError(t, err)

	_, err = codec.Verify(issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	issued, err := codec.Issue(Claims{UserID: 1, Role: "employee"})
	require.NoError(t, err)

	_, err = codec.Verify(issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
