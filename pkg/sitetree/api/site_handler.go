package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
)

// SiteHandler handles HTTP requests for sites using pkg/sitetree
type SiteHandler struct {
	service sitetree.Service
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(service sitetree.Service) *SiteHandler {
	return &SiteHandler{service: service}
}

// Routes returns the routes for sites
func (h *SiteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSite)
	r.Get("/", h.ListSites)
	r.Get("/{id}", h.GetSite)
	r.Delete("/{id}", h.DeleteSite)

	r.Get("/{id}/render", h.RenderSite)
	r.Get("/{id}/count", h.CountItems)

	r.Post("/{id}/categories", h.AddCategory)
	r.Post("/{id}/contents", h.AddContent)
	r.Put("/{id}/nodes/{nodeID}", h.EditContent)
	r.Delete("/{id}/nodes/{nodeID}", h.RemoveNode)
	r.Get("/{id}/nodes/{nodeID}", h.GetNode)
	r.Get("/{id}/nodes/{nodeID}/children", h.ListChildren)

	r.Post("/{id}/nodes/{nodeID}/attachments", h.UploadAttachment)

	return r
}

// SiteResponse is the response body for a site
type SiteResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSiteRequest is the request body for creating a site
type CreateSiteRequest struct {
	Name string `json:"name"`
}

// AddCategoryRequest is the request body for adding a category
type AddCategoryRequest struct {
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
}

// AddContentRequest is the request body for adding a content item
type AddContentRequest struct {
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Status   string `json:"status,omitempty"`
}

// EditContentRequest is the request body for editing a content item
type EditContentRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status,omitempty"`
}

// NodeResponse is the response body for a tree node
type NodeResponse struct {
	ID       string `json:"id"`
	SiteID   string `json:"site_id"`
	ParentID string `json:"parent_id,omitempty"`
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Position int    `json:"position"`
}

// statusForError maps service errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, sitetree.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, sitetree.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sitetree.ErrSiteNotFound), errors.Is(err, sitetree.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, sitetree.ErrInvalidArgument),
		errors.Is(err, sitetree.ErrIndexOutOfRange),
		errors.Is(err, sitetree.ErrUnsupportedOperation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusForError(err))
}

func siteResponse(site *sitetree.Site) SiteResponse {
	return SiteResponse{
		ID:        site.ID.String(),
		Name:      site.Name,
		CreatedAt: site.CreatedAt,
		UpdatedAt: site.UpdatedAt,
	}
}

func nodeResponse(rec sitetree.NodeRecord) NodeResponse {
	resp := NodeResponse{
		ID:       rec.ID.String(),
		SiteID:   rec.SiteID.String(),
		Kind:     string(rec.Kind),
		Name:     rec.Name,
		Title:    rec.Title,
		Status:   string(rec.Status),
		Position: rec.Position,
	}
	if rec.ParentID != uuid.Nil {
		resp.ParentID = rec.ParentID.String()
	}
	return resp
}

// CreateSite creates a new site
func (h *SiteHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req CreateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	site, err := h.service.CreateSite(r.Context(), sitetree.CreateSiteRequest{
		Name:      req.Name,
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to create site", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Site created", "site_id", site.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, siteResponse(site))
}

// GetSite retrieves a site by ID
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid site ID", "site_id", idStr, "error", err)
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	site, err := h.service.GetSite(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get site", "site_id", idStr, "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, siteResponse(site))
}

// ListSites lists all sites
func (h *SiteHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.service.ListSites(r.Context())
	if err != nil {
		slog.Error("Failed to list sites", "error", err)
		writeError(w, err)
		return
	}

	resp := make([]SiteResponse, 0, len(sites))
	for _, site := range sites {
		resp = append(resp, siteResponse(site))
	}
	render.JSON(w, r, resp)
}

// DeleteSite deletes a site by ID
func (h *SiteHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid site ID", "site_id", idStr, "error", err)
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	err = h.service.DeleteSite(r.Context(), sitetree.DeleteSiteRequest{
		SiteID:    id,
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to delete site", "site_id", idStr, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Site deleted", "site_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// RenderSite returns the indented text rendering of the site tree
func (h *SiteHandler) RenderSite(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	text, err := h.service.RenderSite(r.Context(), id)
	if err != nil {
		slog.Error("Failed to render site", "site_id", idStr, "error", err)
		writeError(w, err)
		return
	}

	render.PlainText(w, r, text)
}

// CountItems returns the number of nodes in the site tree
func (h *SiteHandler) CountItems(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	count, err := h.service.CountItems(r.Context(), id)
	if err != nil {
		slog.Error("Failed to count items", "site_id", idStr, "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, map[string]int{"count": count})
}

// AddCategory adds a category under a parent node (or the site root)
func (h *SiteHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	siteIDStr := chi.URLParam(r, "id")
	siteID, err := uuid.Parse(siteIDStr)
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	var req AddCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parentID, err := parseOptionalID(req.ParentID)
	if err != nil {
		http.Error(w, "Invalid parent ID", http.StatusBadRequest)
		return
	}

	nodeID, err := h.service.AddCategory(r.Context(), sitetree.AddCategoryRequest{
		SiteID:    siteID,
		ParentID:  parentID,
		Name:      req.Name,
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to add category", "site_id", siteIDStr, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Category added", "site_id", siteIDStr, "node_id", nodeID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": nodeID.String()})
}

// AddContent adds a content item under a parent node (or the site root)
func (h *SiteHandler) AddContent(w http.ResponseWriter, r *http.Request) {
	siteIDStr := chi.URLParam(r, "id")
	siteID, err := uuid.Parse(siteIDStr)
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	var req AddContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parentID, err := parseOptionalID(req.ParentID)
	if err != nil {
		http.Error(w, "Invalid parent ID", http.StatusBadRequest)
		return
	}

	nodeID, err := h.service.AddContent(r.Context(), sitetree.AddContentRequest{
		SiteID:   siteID,
		ParentID: parentID,
		Content: sitetree.ContentRecord{
			Title:  req.Title,
			Body:   req.Body,
			Status: sitetree.ContentStatus(req.Status),
		},
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to add content", "site_id", siteIDStr, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Content added", "site_id", siteIDStr, "node_id", nodeID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": nodeID.String()})
}

// EditContent updates a content item in place
func (h *SiteHandler) EditContent(w http.ResponseWriter, r *http.Request) {
	siteID, nodeID, ok := h.parseNodePath(w, r)
	if !ok {
		return
	}

	var req EditContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.EditContent(r.Context(), sitetree.EditContentRequest{
		SiteID: siteID,
		NodeID: nodeID,
		Content: sitetree.ContentRecord{
			Title:  req.Title,
			Body:   req.Body,
			Status: sitetree.ContentStatus(req.Status),
		},
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to edit content", "node_id", nodeID.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Content edited", "node_id", nodeID.String())
	w.WriteHeader(http.StatusNoContent)
}

// RemoveNode removes a node from the site tree
func (h *SiteHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	siteID, nodeID, ok := h.parseNodePath(w, r)
	if !ok {
		return
	}

	err := h.service.RemoveNode(r.Context(), sitetree.RemoveNodeRequest{
		SiteID:    siteID,
		NodeID:    nodeID,
		Principal: PrincipalFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("Failed to remove node", "node_id", nodeID.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Node removed", "node_id", nodeID.String())
	w.WriteHeader(http.StatusNoContent)
}

// GetNode retrieves a single node from the site tree
func (h *SiteHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	siteID, nodeID, ok := h.parseNodePath(w, r)
	if !ok {
		return
	}

	rec, err := h.service.GetNode(r.Context(), siteID, nodeID)
	if err != nil {
		slog.Error("Failed to get node", "node_id", nodeID.String(), "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, nodeResponse(*rec))
}

// ListChildren lists the direct children of a node
func (h *SiteHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	siteID, nodeID, ok := h.parseNodePath(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListChildren(r.Context(), siteID, nodeID)
	if err != nil {
		slog.Error("Failed to list children", "node_id", nodeID.String(), "error", err)
		writeError(w, err)
		return
	}

	resp := make([]NodeResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, nodeResponse(rec))
	}
	render.JSON(w, r, resp)
}

// UploadAttachment uploads a file attached to a content node. The request
// body carries the raw file bytes; the filename and MIME type come from
// query parameters and headers.
func (h *SiteHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	siteID, nodeID, ok := h.parseNodePath(w, r)
	if !ok {
		return
	}

	fileName := r.URL.Query().Get("filename")
	if fileName == "" {
		http.Error(w, "Missing required 'filename' parameter", http.StatusBadRequest)
		return
	}

	objectKey, err := h.service.UploadAttachment(r.Context(), sitetree.UploadAttachmentRequest{
		SiteID:    siteID,
		NodeID:    nodeID,
		FileName:  fileName,
		Size:      r.ContentLength,
		MimeType:  r.Header.Get("Content-Type"),
		Backend:   r.URL.Query().Get("backend"),
		Principal: PrincipalFromContext(r.Context()),
	}, r.Body)
	if err != nil {
		slog.Error("Failed to upload attachment", "node_id", nodeID.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Attachment uploaded", "node_id", nodeID.String(), "object_key", objectKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"object_key": objectKey})
}

func (h *SiteHandler) parseNodePath(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	siteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	nodeID, err := uuid.Parse(chi.URLParam(r, "nodeID"))
	if err != nil {
		http.Error(w, "Invalid node ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return siteID, nodeID, true
}

func parseOptionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

// DownloadAttachment streams an attachment back to the client. Registered
// separately because the object key contains slashes.
func (h *SiteHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	objectKey := chi.URLParam(r, "*")
	if objectKey == "" {
		http.Error(w, "Missing object key", http.StatusBadRequest)
		return
	}

	reader, err := h.service.DownloadAttachment(r.Context(), objectKey, r.URL.Query().Get("backend"))
	if err != nil {
		slog.Error("Failed to download attachment", "object_key", objectKey, "error", err)
		writeError(w, err)
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("Failed to stream attachment", "object_key", objectKey, "error", err)
	}
}
