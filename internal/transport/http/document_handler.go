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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worksafe/worksafe/internal/audit"
	"github.com/worksafe/worksafe/internal/document"
	"github.com/worksafe/worksafe/internal/observability/logger"
	"github.com/worksafe/worksafe/internal/record"
)

// documentPayload is the wire shape of a document. The storage path stays
// internal.
type documentPayload struct {
	ID         int64      `json:"id"`
	Owner      record.Ref `json:"owner"`
	FileName   string     `json:"file_name"`
	MIMEType   string     `json:"mime_type"`
	SizeBytes  int64      `json:"size_bytes"`
	UploadedBy int64      `json:"uploaded_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toDocumentPayload(d *document.Document) documentPayload {
	return documentPayload{
		ID:         d.ID,
		Owner:      d.Owner,
		FileName:   d.FileName,
		MIMEType:   d.MIMEType,
		SizeBytes:  d.SizeBytes,
		UploadedBy: d.UploadedBy,
		CreatedAt:  d.CreatedAt,
	}
}

// ownerRefParam parses the {kind}/{ownerID} route segments into a typed
// record reference.
func ownerRefParam(r *http.Request) (record.Ref, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		return record.Ref{}, fmt.Errorf("invalid owner id")
	}
	ref, err := record.ParseRef(chi.URLParam(r, "kind"), id)
	if err != nil {
		return record.Ref{}, err
	}
	// Documents attach to tenant records only, not to registry entities.
	switch ref.Kind {
	case record.KindCompany, record.KindWorksite, record.KindEmployee, record.KindStaff:
		return ref, nil
	}
	return record.Ref{}, fmt.Errorf("documents cannot be attached to %s records", ref.Kind)
}

// ListDocuments returns one page of documents attached to a record
// @Summary List Documents
// @Tags Document
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Owner record kind"
// @Param ownerID path int true "Owner record ID"
// @Success 200 {object} listResponse
// @Failure 400 {object} map[string]string
// @Router /documents/{kind}/{ownerID} [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	owner, err := ownerRefParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, size := pageParams(r)
	docs, total, err := h.documentService(handle).ListFor(r.Context(), owner, page, size)
	if err != nil {
		slog.ErrorContext(r.Context(), "document listing failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]documentPayload, len(docs))
	for i, d := range docs {
		items[i] = toDocumentPayload(d)
	}
	respondJSON(w, http.StatusOK, listResponse{Total: total, Items: items})
}

// UploadDocument attaches an uploaded file to a record
// @Summary Upload Document
// @Tags Document
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Owner record kind"
// @Param ownerID path int true "Owner record ID"
// @Param file formData file true "File to attach"
// @Success 201 {object} documentPayload
// @Failure 400 {object} map[string]string
// @Router /documents/{kind}/{ownerID} [post]
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	owner, err := ownerRefParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	d, err := h.documentService(handle).Attach(r.Context(), owner,
		header.Filename, header.Size, file, user.ID)
	if err != nil {
		status := http.StatusBadRequest
		var msg string
		auditMsg := ""
		switch {
		case errors.Is(err, document.ErrTypeNotAllowed):
			msg = "file type is not allowed"
		case errors.Is(err, document.ErrFileTooLarge):
			msg = "file exceeds the maximum allowed size"
		case errors.Is(err, document.ErrEmptyFile):
			msg = "file is empty"
		default:
			status = http.StatusInternalServerError
			msg = "internal server error"
			auditMsg = err.Error()
			slog.ErrorContext(r.Context(), "document upload failed",
				logger.Locator(handle.Locator()),
				logger.Error(err),
			)
		}
		if auditMsg == "" {
			auditMsg = msg
		}
		h.auditFailure(r, user, audit.KindRecordCreated, "documents",
			"document upload failed", auditMsg, nil)
		respondError(w, status, msg)
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      h.tenantSnapshot(r.Context(), user),
		Kind:        audit.KindRecordCreated,
		Module:      "documents",
		Description: "document uploaded",
		Target:      &audit.Target{Kind: record.KindDocument, ID: d.ID},
		After: map[string]any{
			"file_name":  d.FileName,
			"mime_type":  d.MIMEType,
			"size_bytes": d.SizeBytes,
			"owner_kind": d.Owner.Kind.String(),
			"owner_id":   d.Owner.ID,
		},
		Meta:    audit.MetaFromRequest(r),
		Success: true,
	})

	respondJSON(w, http.StatusCreated, toDocumentPayload(d))
}

// DownloadDocument streams the file bytes. This route also accepts the
// token as a query parameter, see AuthenticateWithQueryToken.
// @Summary Download Document
// @Tags Document
// @Produce octet-stream
// @Security BearerAuth
// @Param documentID path int true "Document ID"
// @Param t query string false "Access token for plain links"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /documents/download/{documentID} [get]
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	d, rc, err := h.documentService(handle).Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "document not found")
			return
		}
		slog.ErrorContext(r.Context(), "document open failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", d.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(d.SizeBytes, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", d.FileName))
	io.Copy(w, rc)
}

// DeleteDocument removes a document and its file
// @Summary Delete Document
// @Tags Document
// @Produce json
// @Security BearerAuth
// @Param documentID path int true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /documents/{documentID} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	handle, ok := TenantStoreFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "tenant context required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	d, err := h.documentService(handle).Remove(r.Context(), id)
	if err != nil {
		target := &audit.Target{Kind: record.KindDocument, ID: id}
		if errors.Is(err, document.ErrDocumentNotFound) {
			h.auditFailure(r, user, audit.KindRecordDeleted, "documents",
				"document deletion failed", "document not found", target)
			respondError(w, http.StatusNotFound, "document not found")
			return
		}
		slog.ErrorContext(r.Context(), "document deletion failed",
			logger.Locator(handle.Locator()),
			logger.Error(err),
		)
		h.auditFailure(r, user, audit.KindRecordDeleted, "documents",
			"document deletion failed", err.Error(), target)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.auditor.Record(r.Context(), audit.Entry{
		Actor:       actorSnapshot(user),
		Tenant:      h.tenantSnapshot(r.Context(), user),
		Kind:        audit.KindRecordDeleted,
		Module:      "documents",
		Description: "document deleted",
		Target:      &audit.Target{Kind: record.KindDocument, ID: d.ID},
		Before: map[string]any{
			"file_name":  d.FileName,
			"owner_kind": d.Owner.Kind.String(),
			"owner_id":   d.Owner.ID,
		},
		Meta:    audit.MetaFromRequest(r),
		Success: true,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
