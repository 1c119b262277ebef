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

// Package audit records an immutable trail of every state-changing operation
// across the registry and all tenant stores. Entries snapshot the actor and
// tenant at write time so the history survives later deletions.
package audit

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/worksafe/worksafe/internal/record"
)

// Kind enumerates the auditable action types.
type Kind string

const (
	KindLogin            Kind = "login"
	KindLoginFailed      Kind = "login_failed"
	KindLogout           Kind = "logout"
	KindRecordCreated    Kind = "record_created"
	KindRecordUpdated    Kind = "record_updated"
	KindRecordDeleted    Kind = "record_deleted"
	KindPermissionDenied Kind = "permission_denied"
	KindPasswordChanged  Kind = "password_changed"
	KindSystem           Kind = "system"
)

// Valid reports whether k is a known action kind.
func (k Kind) Valid() bool {
	switch k {
	case KindLogin, KindLoginFailed, KindLogout,
		KindRecordCreated, KindRecordUpdated, KindRecordDeleted,
		KindPermissionDenied, KindPasswordChanged, KindSystem:
		return true
	}
	return false
}

// Actor is a point-in-time snapshot of who performed the action. ID is nil
// for anonymous actions such as failed logins with an unknown email.
type Actor struct {
	ID    *int64
	Email string
	Role  string
	Name  string
}

// Tenant is a point-in-time snapshot of the tenant context.
type Tenant struct {
	ID   *int64
	Name string
}

// Target references the record the action touched.
type Target struct {
	Kind record.Kind
	ID   int64
}

// Meta carries the technical request metadata stored with each entry.
// Neither IP is validated or geolocated here.
type Meta struct {
	InternalIP string
	ExternalIP string
	UserAgent  string
	Method     string
	Path       string
}

// Entry is one append-only audit record. Once written it is never mutated
// or deleted.
type Entry struct {
	ID             int64
	Actor          Actor
	Tenant         Tenant
	Kind           Kind
	Module         string
	Description    string
	Target         *Target
	Before         map[string]any
	After          map[string]any
	Meta           Meta
	Success        bool
	FailureMessage string
	CreatedAt      time.Time
}

// Store persists audit entries in the central registry database.
type Store interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int64, error)
	Summary(ctx context.Context, since time.Time, tenantID *int64) (*Summary, error)
}

// Recorder writes audit entries on a best-effort basis. A store failure is
// reported to the operational log and swallowed: the business operation that
// triggered the entry must complete regardless of audit availability.
type Recorder struct {
	store  Store
	log    *slog.Logger
	writes metric.Int64Counter
}

// NewRecorder creates a recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store: store,
		log:   slog.Default().With(slog.String("component", "audit")),
	}
}

// InstrumentWrites attaches a counter incremented once per persisted entry,
// labeled with the action kind and outcome.
func (r *Recorder) InstrumentWrites(c metric.Int64Counter) {
	r.writes = c
}

// Record persists one entry. It never returns an error and never panics the
// calling request.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if !e.Kind.Valid() {
		r.log.ErrorContext(ctx, "dropping audit entry with unknown kind",
			slog.String("kind", string(e.Kind)),
			slog.String("module", e.Module),
		)
		return
	}

	if err := r.store.Insert(ctx, &e); err != nil {
		// Availability over completeness: the entry is lost, the caller
		// proceeds. The operational log keeps enough to reconstruct it.
		r.log.ErrorContext(ctx, "audit write failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(e.Kind)),
			slog.String("module", e.Module),
			slog.String("actor_email", e.Actor.Email),
			slog.String("description", e.Description),
			slog.Bool("success", e.Success),
		)
		return
	}

	if r.writes != nil {
		r.writes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(e.Kind)),
			attribute.Bool("success", e.Success),
		))
	}

	r.log.InfoContext(ctx, "audit_entry",
		slog.String("kind", string(e.Kind)),
		slog.String("module", e.Module),
		slog.String("actor_email", e.Actor.Email),
		slog.Bool("success", e.Success),
	)
}
