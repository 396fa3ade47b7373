package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"orbitdrive/internal/domain"
	"orbitdrive/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req domain.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	share, err := h.shareService.Share(r.Context(), p, req.FolderID, req.UserID, req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req domain.UnshareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}

	if err := h.shareService.Unshare(r.Context(), p, req.FolderID, req.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// List handles GET /v1/shares?folder_id=: the grants on one folder.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	folderID, err := parseOptionalUUID(r.URL.Query().Get("folder_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if folderID == nil {
		writeError(w, fmt.Errorf("folder_id is required: %w", domain.ErrInvalidOperation))
		return
	}

	grants, err := h.shareService.ListShares(r.Context(), p, *folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

func (h *ShareHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	folders, err := h.shareService.ListSharedWithMe(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folders)
}
