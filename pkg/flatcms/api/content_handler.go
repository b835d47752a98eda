// Package api exposes the content storage engine over HTTP. It is a thin
// boundary: request parsing, outcome-to-status mapping, nothing else.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

// ContentHandler handles HTTP requests for content items.
type ContentHandler struct {
	service flatcms.Service
}

// NewContentHandler creates a new content handler.
func NewContentHandler(service flatcms.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content items.
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{type}", h.CreateItem)
	r.Get("/{type}", h.QueryItems)
	r.Get("/{type}/{id}", h.GetItem)
	r.Put("/{type}/{id}", h.UpdateItem)
	r.Delete("/{type}/{id}", h.DeleteItem)

	r.Get("/{type}/{id}/versions", h.ListVersions)
	r.Get("/{type}/{id}/versions/{versionID}", h.GetVersion)
	r.Post("/{type}/{id}/versions/{versionID}/restore", h.RestoreVersion)

	r.Get("/{type}/{id}/related", h.GetRelated)

	return r
}

// ErrorResponse is the error body returned by every handler.
type ErrorResponse struct {
	Error      string                        `json:"error"`
	Violations []flatcms.UniquenessViolation `json:"violations,omitempty"`
}

// writeError maps engine outcomes to protocol status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error()}

	var uniqErr *flatcms.UniquenessError
	switch {
	case errors.Is(err, flatcms.ErrItemNotFound), errors.Is(err, flatcms.ErrVersionNotFound):
		status = http.StatusNotFound
	case errors.As(err, &uniqErr):
		status = http.StatusConflict
		resp.Violations = uniqErr.Report.Violations
	case errors.Is(err, flatcms.ErrItemExists), errors.Is(err, flatcms.ErrUniquenessViolation):
		status = http.StatusConflict
	case errors.Is(err, flatcms.ErrInvalidStatus),
		errors.Is(err, flatcms.ErrInvalidContentType),
		errors.Is(err, flatcms.ErrInvalidID):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (h *ContentHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")

	var data flatcms.Fields
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.service.CreateItem(r.Context(), flatcms.CreateItemRequest{Type: contentType, Data: data})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "content_type", contentType, "id", item.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *ContentHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), contentType, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, item)
}

func (h *ContentHandler) QueryItems(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")

	result, err := h.service.QueryItems(r.Context(), contentType, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

func (h *ContentHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	var data flatcms.Fields
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.service.UpdateItem(r.Context(), flatcms.UpdateItemRequest{Type: contentType, ID: id, Data: data})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, item)
}

func (h *ContentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	existed, err := h.service.DeleteItem(r.Context(), contentType, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !existed {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "content item not found"})
		return
	}

	slog.Info("item deleted", "content_type", contentType, "id", id)
	render.NoContent(w, r)
}

func (h *ContentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	versions, err := h.service.ListVersions(r.Context(), contentType, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, versions)
}

func (h *ContentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	versionID := chi.URLParam(r, "versionID")

	snap, err := h.service.GetVersion(r.Context(), contentType, id, versionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, snap)
}

func (h *ContentHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	versionID := chi.URLParam(r, "versionID")

	item, err := h.service.RestoreVersion(r.Context(), contentType, id, versionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("version restored", "content_type", contentType, "id", id, "version_id", versionID)
	render.JSON(w, r, item)
}

func (h *ContentHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	opts := flatcms.RelatedOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	result, err := h.service.GetRelated(r.Context(), contentType, id, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}
