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

// Package document stores files attached to tenant records. Metadata lives
// in the tenant database, file bytes on local disk under a per-tenant root.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/worksafe/worksafe/internal/record"
)

// Domain errors
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrFileTooLarge     = errors.New("file exceeds the maximum allowed size")
	ErrTypeNotAllowed   = errors.New("file type is not allowed")
	ErrEmptyFile        = errors.New("file is empty")
)

// Document is the stored metadata of one uploaded file. StoredPath is
// relative to the tenant's storage root and never exposed over the API.
type Document struct {
	ID         int64
	Owner      record.Ref
	FileName   string
	StoredPath string
	MIMEType   string
	SizeBytes  int64
	UploadedBy int64
	CreatedAt  time.Time
}

// Repository defines persistence for document metadata in a tenant store.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id int64) (*Document, error)
	ListByOwner(ctx context.Context, owner record.Ref, limit, offset int) ([]*Document, int64, error)
	Delete(ctx context.Context, id int64) error
}
