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

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/record"
)

// AuditRepository implements audit.Store against the registry database.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one entry. There is no update or delete path.
func (r *AuditRepository) Insert(ctx context.Context, e *audit.Entry) error {
	var beforeJSON, afterJSON []byte
	var err error
	if e.Before != nil {
		if beforeJSON, err = json.Marshal(e.Before); err != nil {
			return fmt.Errorf("failed to encode before state: %w", err)
		}
	}
	if e.After != nil {
		if afterJSON, err = json.Marshal(e.After); err != nil {
			return fmt.Errorf("failed to encode after state: %w", err)
		}
	}

	var targetKind *string
	var targetID *int64
	if e.Target != nil {
		k := e.Target.Kind.String()
		targetKind = &k
		targetID = &e.Target.ID
	}

	err = r.db.pool.QueryRow(ctx, `
		INSERT INTO audit_log (
			actor_id, actor_email, actor_role, actor_name,
			tenant_id, tenant_name, kind, module, description,
			target_kind, target_id, before_state, after_state,
			internal_ip, external_ip, user_agent, http_method, http_path,
			success, failure_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21
		)
		RETURNING id
	`,
		e.Actor.ID, e.Actor.Email, e.Actor.Role, e.Actor.Name,
		e.Tenant.ID, e.Tenant.Name, e.Kind, e.Module, e.Description,
		targetKind, targetID, beforeJSON, afterJSON,
		e.Meta.InternalIP, e.Meta.ExternalIP, e.Meta.UserAgent,
		e.Meta.Method, e.Meta.Path,
		e.Success, e.FailureMessage, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// buildWhere translates a filter into a WHERE clause with positional args.
func buildWhere(f audit.Filter) (string, []any) {
	where := "WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TenantID != nil {
		where += " AND tenant_id = " + arg(*f.TenantID)
	}
	if f.Module != "" {
		where += " AND module = " + arg(f.Module)
	}
	if f.Kind != "" {
		where += " AND kind = " + arg(string(f.Kind))
	}
	if f.ActorEmail != "" {
		// Substring match, so "tenant_a.example" finds every actor
		// from that domain.
		where += " AND actor_email ILIKE '%' || " + arg(f.ActorEmail) + " || '%'"
	}
	if f.Success != nil {
		where += " AND success = " + arg(*f.Success)
	}
	if f.Since != nil {
		where += " AND created_at >= " + arg(*f.Since)
	}
	if f.TargetKind != "" {
		where += " AND target_kind = " + arg(string(f.TargetKind))
	}
	if f.TargetID != 0 {
		where += " AND target_id = " + arg(f.TargetID)
	}
	return where, args
}

// List returns matching entries newest first plus the total match count.
func (r *AuditRepository) List(ctx context.Context, f audit.Filter, limit, offset int) ([]*audit.Entry, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	query := `
		SELECT id, actor_id, actor_email, actor_role, actor_name,
			tenant_id, tenant_name, kind, module, description,
			target_kind, target_id, before_state, after_state,
			internal_ip, external_ip, user_agent, http_method, http_path,
			success, failure_message, created_at
		FROM audit_log ` + where + fmt.Sprintf(`
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var targetKind sql.NullString
		var targetID sql.NullInt64
		var beforeJSON, afterJSON []byte

		err := rows.Scan(
			&e.ID, &e.Actor.ID, &e.Actor.Email, &e.Actor.Role, &e.Actor.Name,
			&e.Tenant.ID, &e.Tenant.Name, &e.Kind, &e.Module, &e.Description,
			&targetKind, &targetID, &beforeJSON, &afterJSON,
			&e.Meta.InternalIP, &e.Meta.ExternalIP, &e.Meta.UserAgent,
			&e.Meta.Method, &e.Meta.Path,
			&e.Success, &e.FailureMessage, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if targetKind.Valid && targetID.Valid {
			e.Target = &audit.Target{Kind: record.Kind(targetKind.String), ID: targetID.Int64}
		}
		if len(beforeJSON) > 0 {
			if err := json.Unmarshal(beforeJSON, &e.Before); err != nil {
				return nil, 0, fmt.Errorf("failed to decode before state: %w", err)
			}
		}
		if len(afterJSON) > 0 {
			if err := json.Unmarshal(afterJSON, &e.After); err != nil {
				return nil, 0, fmt.Errorf("failed to decode after state: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, total, nil
}

// Summary aggregates entries written since the given instant.
func (r *AuditRepository) Summary(ctx context.Context, since time.Time, tenantID *int64) (*audit.Summary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success),
			COUNT(*) FILTER (WHERE kind = 'login'),
			COUNT(*) FILTER (WHERE kind = 'login_failed')
		FROM audit_log
		WHERE created_at >= $1`
	args := []any{since}
	if tenantID != nil {
		query += " AND tenant_id = $2"
		args = append(args, *tenantID)
	}

	var sum audit.Summary
	err := r.db.pool.QueryRow(ctx, query, args...).Scan(
		&sum.Total, &sum.Succeeded, &sum.Failed, &sum.Logins, &sum.FailedLogins,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize audit entries: %w", err)
	}
	return &sum, nil
}
