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

// Package token issues and verifies the stateless session credential that
// carries identity and tenant-routing claims. Tokens are self-contained:
// there is no server-side revocation list, so logout is a client-side
// discard and a compromised token stays valid until its expiry.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Domain errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the session token payload. Subject carries the user email.
// TenantID and Locator are nil/empty for platform admins; endpoints that
// require tenant context must reject such tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"rol"`
	TenantID *int64 `json:"tenant_id"`
	Locator  string `json:"db_name,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a shared HS256 secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec with the given signing secret and default TTL.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue encodes the claims into a signed token. An optional ttl overrides
// the codec default.
func (c *Codec) Issue(claims Claims, ttl ...time.Duration) (string, error) {
	d := c.ttl
	if len(ttl) > 0 {
		d = ttl[0]
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(d))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token and validates its signature and expiry. Callers at
// the transport boundary must collapse both error cases into a generic
// unauthorized response.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
