package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"orbitdrive/internal/auth"
	"orbitdrive/internal/domain"
	"orbitdrive/internal/service"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB per request

type NodeHandler struct {
	nodeService *service.NodeService
}

func NewNodeHandler(nodeService *service.NodeService) *NodeHandler {
	return &NodeHandler{nodeService: nodeService}
}

func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return domain.Principal{}, false
	}
	return p, true
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, domain.ErrInvalidOperation)
	}
	return id, nil
}

func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", value, domain.ErrInvalidOperation)
	}
	return &id, nil
}

// List handles GET /v1/nodes?parent_id=&owner_id=. Without parent_id it
// returns the principal's top-level view; owner_id is honored for admins
// only.
func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	parentID, err := parseOptionalUUID(r.URL.Query().Get("parent_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	ownerID, err := parseOptionalUUID(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := h.nodeService.List(r.Context(), p, parentID, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.nodeService.ToResponses(nodes))
}

func (h *NodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	node, err := h.nodeService.GetByID(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.nodeService.ToResponse(node))
}

// Upload handles POST /v1/nodes: multipart form with one or more files under
// the "content" field and an optional parent_id form value.
func (h *NodeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, fmt.Errorf("invalid multipart form: %w", domain.ErrInvalidOperation))
		return
	}

	parentID, err := parseOptionalUUID(r.FormValue("parent_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	headers := r.MultipartForm.File["content"]
	if len(headers) == 0 {
		writeError(w, fmt.Errorf("no content files provided: %w", domain.ErrInvalidOperation))
		return
	}

	created := make([]domain.NodeResponse, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, fmt.Errorf("failed to open uploaded file: %w", err))
			return
		}

		node, err := h.nodeService.Upload(
			r.Context(),
			p,
			parentID,
			header.Filename,
			header.Header.Get("Content-Type"),
			header.Size,
			file,
		)
		file.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		created = append(created, h.nodeService.ToResponse(node))
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *NodeHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req domain.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.nodeService.CreateFolder(r.Context(), p, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.nodeService.ToResponse(folder))
}

func (h *NodeHandler) Rename(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req domain.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	node, err := h.nodeService.Rename(r.Context(), p, id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.nodeService.ToResponse(node))
}

func (h *NodeHandler) Move(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req domain.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}

	node, err := h.nodeService.Move(r.Context(), p, id, req.DestinationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.nodeService.ToResponse(node))
}

func (h *NodeHandler) Copy(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req domain.CopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidOperation))
		return
	}
	if req.DestinationID == uuid.Nil {
		writeError(w, fmt.Errorf("destination_id is required: %w", domain.ErrInvalidOperation))
		return
	}

	clone, err := h.nodeService.Copy(r.Context(), p, id, req.DestinationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.nodeService.ToResponse(clone))
}

func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.nodeService.Delete(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *NodeHandler) Download(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	node, obj, err := h.nodeService.Download(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType())
	w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", node.Name))
	io.Copy(w, obj)
}
