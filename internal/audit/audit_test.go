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

package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// MockStore is an in-memory audit store.
type MockStore struct {
	entries []*Entry
	failing bool
}

func (m *MockStore) Insert(ctx context.Context, e *Entry) error {
	if m.failing {
		return errors.New("registry unreachable")
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockStore) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int64, error) {
	var matched []*Entry
	for _, e := range m.entries {
		if f.Module != "" && e.Module != f.Module {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.TenantID != nil && (e.Tenant.ID == nil || *e.Tenant.ID != *f.TenantID) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *MockStore) Summary(ctx context.Context, since time.Time, tenantID *int64) (*Summary, error) {
	sum := &Summary{}
	for _, e := range m.entries {
		if e.CreatedAt.Before(since) {
			continue
		}
		if tenantID != nil && (e.Tenant.ID == nil || *e.Tenant.ID != *tenantID) {
			continue
		}
		sum.Total++
		if e.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		switch e.Kind {
		case KindLogin:
			sum.Logins++
		case KindLoginFailed:
			sum.FailedLogins++
		}
	}
	return sum, nil
}

func TestRecordWritesEntry(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)

	actorID := int64(3)
	rec.Record(context.Background(), Entry{
		Actor:       Actor{ID: &actorID, Email: "admin@demo.example", Role: "tenant_admin", Name: "Demo Admin"},
		Kind:        KindRecordCreated,
		Module:      "company",
		Description: "company created",
		Success:     true,
	})

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, KindRecordCreated, e.Kind)
	assert.Equal(t, "admin@demo.example", e.Actor.Email)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestRecordWithWriteCounter(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)

	counter, err := otel.Meter("test").Int64Counter("audit_writes_total")
	require.NoError(t, err)
	rec.InstrumentWrites(counter)

	rec.Record(context.Background(), Entry{
		Kind:    KindRecordDeleted,
		Module:  "companies",
		Success: true,
	})

	require.Len(t, store.entries, 1)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &MockStore{failing: true}
	rec := NewRecorder(store)

	// Must not panic and must not surface the failure.
	rec.Record(context.Background(), Entry{
		Kind:        KindLogin,
		Module:      "auth",
		Description: "login",
		Success:     true,
	})

	assert.Empty(t, store.entries)
}

func TestRecordDropsUnknownKind(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)

	rec.Record(context.Background(), Entry{Kind: Kind("bogus"), Module: "auth"})

	assert.Empty(t, store.entries)
}

func TestMetaFromRequestExternalIPPriority(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "client asserted wins",
			headers: map[string]string{
				"X-Client-Public-IP": "203.0.113.9",
				"X-Forwarded-For":    "198.51.100.1, 10.0.0.1",
				"X-Real-IP":          "198.51.100.2",
			},
			want: "203.0.113.9",
		},
		{
			name: "first forwarded hop",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.1, 10.0.0.1",
				"X-Real-IP":       "198.51.100.2",
			},
			want: "198.51.100.1",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			want:    "198.51.100.2",
		},
		{
			name:    "loopback skipped",
			headers: map[string]string{"X-Client-Public-IP": "127.0.0.1"},
			want:    "",
		},
		{
			name:    "absent",
			headers: map[string]string{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/companies", nil)
			r.RemoteAddr = "192.168.1.20:61234"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			meta := MetaFromRequest(r)
			assert.Equal(t, tt.want, meta.ExternalIP)
			assert.Equal(t, "192.168.1.20", meta.InternalIP)
			assert.Equal(t, "POST", meta.Method)
			assert.Equal(t, "/api/v1/companies", meta.Path)
		})
	}
}

func TestQueryServiceClampsPageSize(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)
	for i := 0; i < 5; i++ {
		rec.Record(context.Background(), Entry{Kind: KindSystem, Module: "system", Success: true})
	}

	svc := NewQueryService(store)

	page, err := svc.List(context.Background(), Filter{}, 0, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 5)

	page, err = svc.List(context.Background(), Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
}

func TestQueryServiceTenantScope(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)

	t1, t2 := int64(1), int64(2)
	rec.Record(context.Background(), Entry{Kind: KindLogin, Module: "auth", Tenant: Tenant{ID: &t1, Name: "Demo"}, Success: true})
	rec.Record(context.Background(), Entry{Kind: KindLogin, Module: "auth", Tenant: Tenant{ID: &t2, Name: "Other"}, Success: true})

	svc := NewQueryService(store)
	page, err := svc.List(context.Background(), Filter{TenantID: &t1}, 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Demo", page.Items[0].Tenant.Name)
}

func TestSummarize(t *testing.T) {
	store := &MockStore{}
	rec := NewRecorder(store)

	rec.Record(context.Background(), Entry{Kind: KindLogin, Module: "auth", Success: true})
	rec.Record(context.Background(), Entry{Kind: KindLoginFailed, Module: "auth", Success: false, FailureMessage: "invalid credentials"})
	rec.Record(context.Background(), Entry{Kind: KindRecordCreated, Module: "company", Success: true})

	svc := NewQueryService(store)
	sum, err := svc.Summarize(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(2), sum.Succeeded)
	assert.Equal(t, int64(1), sum.Failed)
	assert.Equal(t, int64(1), sum.Logins)
	assert.Equal(t, int64(1), sum.FailedLogins)
	assert.Equal(t, 7, sum.Days)
}
