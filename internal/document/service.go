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

package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/worksafe/worksafe/internal/record"
)

// Uploads are served back to browsers, so the allow-list stays at office
// document and image formats. Anything executable is out.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".txt":  "text/plain",
}

// Service stores and retrieves documents for one tenant. RootDir already
// includes the tenant locator, so two tenants never share a directory.
type Service struct {
	repo     Repository
	rootDir  string
	maxBytes int64
}

// NewService creates a document service writing files under rootDir.
func NewService(repo Repository, rootDir string, maxBytes int64) *Service {
	return &Service{repo: repo, rootDir: rootDir, maxBytes: maxBytes}
}

// Attach validates and stores one uploaded file against an owner record.
// The file lands on disk under a random name; the original name survives
// only in metadata.
func (s *Service) Attach(ctx context.Context, owner record.Ref, fileName string, size int64, body io.Reader, uploadedBy int64) (*Document, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotAllowed, ext)
	}

	relDir := filepath.Join(owner.Kind.String(), strconv.FormatInt(owner.ID, 10))
	if err := os.MkdirAll(filepath.Join(s.rootDir, relDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	storedName := uuid.New().String() + ext
	relPath := filepath.Join(relDir, storedName)
	absPath := filepath.Join(s.rootDir, relPath)

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxBytes {
		err = fmt.Errorf("%w: body exceeds %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	if err != nil {
		os.Remove(absPath)
		return nil, err
	}

	d := &Document{
		Owner:      owner,
		FileName:   filepath.Base(fileName),
		StoredPath: relPath,
		MIMEType:   mimeType,
		SizeBytes:  written,
		UploadedBy: uploadedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		os.Remove(absPath)
		return nil, fmt.Errorf("failed to save document metadata: %w", err)
	}
	return d, nil
}

// Get retrieves document metadata by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFor returns one page of documents attached to a record.
func (s *Service) ListFor(ctx context.Context, owner record.Ref, page, size int) ([]*Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return s.repo.ListByOwner(ctx, owner, size, (page-1)*size)
}

// Open returns the document metadata and a reader over its bytes. The
// caller closes the reader.
func (s *Service) Open(ctx context.Context, id int64) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.rootDir, d.StoredPath))
	if err != nil {
		if os.IsNotExist(err) {
			// Metadata outlived the file. Treat as missing rather than 500.
			return nil, nil, ErrDocumentNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return d, f, nil
}

// Remove deletes the metadata row and then the file. A file already gone
// from disk does not fail the removal.
func (s *Service) Remove(ctx context.Context, id int64) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete document metadata: %w", err)
	}
	if err := os.Remove(filepath.Join(s.rootDir, d.StoredPath)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}
	return d, nil
}
