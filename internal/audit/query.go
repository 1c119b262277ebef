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
	"time"

	"github.com/worksafe/worksafe/internal/record"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Filter narrows an audit listing. Zero values mean "no constraint".
// TenantID is a hard scope: when set, only entries for that tenant are
// returned regardless of the other filters.
type Filter struct {
	Module     string
	Kind       Kind
	ActorEmail string
	Success    *bool
	Since      *time.Time
	TargetKind record.Kind
	TargetID   int64
	TenantID   *int64
}

// Page is one page of audit entries, newest first.
type Page struct {
	Total int64    `json:"total"`
	Items []*Entry `json:"items"`
}

// Summary aggregates recent audit activity for dashboards.
type Summary struct {
	Days         int   `json:"days"`
	Total        int64 `json:"total"`
	Succeeded    int64 `json:"succeeded"`
	Failed       int64 `json:"failed"`
	Logins       int64 `json:"logins"`
	FailedLogins int64 `json:"failed_logins"`
}

// QueryService serves the read side of the audit trail. Access control
// (platform admin sees everything, tenant admin only their own tenant) is
// enforced by the caller setting Filter.TenantID.
type QueryService struct {
	store Store
}

// NewQueryService creates an audit query service.
func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// List returns one page of entries matching the filter.
func (s *QueryService) List(ctx context.Context, f Filter, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	items, total, err := s.store.List(ctx, f, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Entry{}
	}
	return &Page{Total: total, Items: items}, nil
}

// Summarize aggregates the last N days of activity, optionally scoped to a
// single tenant.
func (s *QueryService) Summarize(ctx context.Context, days int, tenantID *int64) (*Summary, error) {
	if days < 1 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	sum, err := s.store.Summary(ctx, since, tenantID)
	if err != nil {
		return nil, err
	}
	sum.Days = days
	return sum, nil
}
