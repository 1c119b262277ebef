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

package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/identity"
)

func TestAuditListActorEmailSubstringFilter(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root@platform.example", "correct-horse-1", identity.RolePlatformAdmin, nil)
	tok := env.issueToken(t, admin, "", 0)

	seed := func(email string) {
		require.NoError(t, env.auditStore.Insert(context.Background(), &audit.Entry{
			Actor:   audit.Actor{Email: email},
			Kind:    audit.KindLogin,
			Module:  "auth",
			Success: true,
		}))
	}
	seed("dr.ayse@osgb_demo.example")
	seed("admin@osgb_demo.example")
	seed("dr.ayse@other.example")

	// A partial email matches every actor containing it.
	rec := doRequest(env, http.MethodGet, "/api/v1/audit?actor_email=dr.ayse", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"total":2`)
	assert.Contains(t, body, "dr.ayse@osgb_demo.example")
	assert.Contains(t, body, "dr.ayse@other.example")
	assert.NotContains(t, body, "admin@osgb_demo.example")
}
