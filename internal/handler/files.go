package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/trailpost/event-registration/internal/authz"
	"github.com/trailpost/event-registration/internal/blobstore"
	"github.com/trailpost/event-registration/internal/config"
	"github.com/trailpost/event-registration/internal/model"
)

// FileHandler gates artifact retrieval and issues short-lived links.
type FileHandler struct {
	gate *authz.Gate
	blob blobstore.Store
	cfg  *config.Config
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(gate *authz.Gate, blob blobstore.Store, cfg *config.Config) *FileHandler {
	return &FileHandler{gate: gate, blob: blob, cfg: cfg}
}

// Presign handles GET /files/presign?key=... by authorizing the caller
// for the artifact and, on allow, returns a short-lived download URL.
// Authorization is evaluated fresh on every request.
func (h *FileHandler) Presign(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	if err := h.gate.Authorize(r.Context(), ActorFrom(r.Context()), key); err != nil {
		writeGateError(w, err)
		return
	}

	ttl := h.cfg.PresignTTL()
	url, err := h.blob.PresignedDownload(r.Context(), key, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to presign download")
		return
	}
	writeJSON(w, http.StatusOK, model.PresignResponse{URL: url, ExpiresAt: time.Now().UTC().Add(ttl)})
}

// PresignUploadRequest asks for an upload grant under a key prefix.
type PresignUploadRequest struct {
	Prefix   string `json:"prefix"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// PresignUpload handles POST /files/uploads.
func (h *FileHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Prefix == "" || req.FileName == "" {
		writeError(w, http.StatusBadRequest, "prefix and file_name are required")
		return
	}

	if err := h.gate.AuthorizeUpload(r.Context(), ActorFrom(r.Context()), req.Prefix); err != nil {
		writeGateError(w, err)
		return
	}

	upload, err := h.blob.PresignedUpload(r.Context(), req.Prefix, req.FileName, req.MimeType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to presign upload")
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func writeGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrInvalidKey):
		writeError(w, http.StatusForbidden, "access denied")
	default:
		writeError(w, http.StatusInternalServerError, "authorization check failed")
	}
}
