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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worksafe/worksafe/internal/document"
	"github.com/worksafe/worksafe/internal/record"
)

// DocumentRepository implements document.Repository against one tenant's
// database.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a document repository over a tenant pool
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create stores document metadata
func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO documents (
			owner_kind, owner_id, file_name, stored_path,
			mime_type, size_bytes, uploaded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		d.Owner.Kind, d.Owner.ID, d.FileName, d.StoredPath,
		d.MIMEType, d.SizeBytes, d.UploadedBy, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID retrieves document metadata by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	var d document.Document
	var ownerKind string

	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_kind, owner_id, file_name, stored_path,
			mime_type, size_bytes, uploaded_by, created_at
		FROM documents
		WHERE id = $1
	`, id).Scan(
		&d.ID, &ownerKind, &d.Owner.ID, &d.FileName, &d.StoredPath,
		&d.MIMEType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	d.Owner.Kind = record.Kind(ownerKind)
	return &d, nil
}

// ListByOwner returns one page of documents attached to a record, newest
// first, plus the total count.
func (r *DocumentRepository) ListByOwner(ctx context.Context, owner record.Ref, limit, offset int) ([]*document.Document, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM documents WHERE owner_kind = $1 AND owner_id = $2
	`, owner.Kind, owner.ID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_kind, owner_id, file_name, stored_path,
			mime_type, size_bytes, uploaded_by, created_at
		FROM documents
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, owner.Kind, owner.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		var d document.Document
		var ownerKind string
		err := rows.Scan(
			&d.ID, &ownerKind, &d.Owner.ID, &d.FileName, &d.StoredPath,
			&d.MIMEType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Owner.Kind = record.Kind(ownerKind)
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, total, nil
}

// Delete removes document metadata
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound
	}
	return nil
}
