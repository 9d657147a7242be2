package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/checksum"
	"github.com/starford/studyshelf/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *catalog.Service
	maxUpload int64
}

// NewHandler creates a new Handler. maxUpload caps request bodies for
// resource creation.
func NewHandler(svc *catalog.Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{svc: svc, maxUpload: maxUpload}
}

// Catalog handles GET /api/catalog.
//
//	@Summary		Get the whole catalog tree
//	@Tags			catalog
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"ETag from a previous response"
//	@Success		200	{object}	models.Manifest
//	@Success		304	"Not modified"
//	@Router			/catalog [get]
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	m, version, err := h.svc.Manifest(r.Context())
	if err != nil {
		writeError(w, "load catalog", err)
		return
	}
	etag := checksum.ETag(version)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && checksum.ParseETag(match) == version {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Resources handles GET /api/resources.
//
//	@Summary		List every resource with its ancestry
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	RecordsResponse
//	@Router			/resources [get]
func (h *Handler) Resources(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Flatten(r.Context())
	if err != nil {
		writeError(w, "flatten catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse(recs))
}

// Search handles GET /api/search.
//
//	@Summary		Case-insensitive search over titles, subjects, branches and years
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	RecordsResponse
//	@Failure		400	{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	recs, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse(recs))
}

// Manifest handles GET /api/manifest.
//
//	@Summary		Download the persisted manifest document
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{file}	file
//	@Router			/manifest [get]
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	data, version, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, "export manifest", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	setAttachment(w, "manifest.json")
	w.Header().Set("ETag", checksum.ETag(version))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// CreateResource handles POST /api/resources.
//
// A JSON body adds a link. A multipart body adds a file: the "file" part
// carries the content and the remaining form fields the placement.
//
//	@Summary		Add a link or file resource
//	@Tags			resources
//	@Accept			json
//	@Accept			mpfd
//	@Produce		json
//	@Param			If-Match	header	string			false	"Catalog ETag for optimistic concurrency"
//	@Param			body		body	AddLinkRequest	false	"Link to add"
//	@Success		201		{object}	ResourceResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources [post]
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var in catalog.AddResourceInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		upload, err := parseUpload(r, h.maxUpload)
		if err != nil {
			writeError(w, "parse upload", err)
			return
		}
		defer upload.Close()
		in = upload.input
	} else {
		var req AddLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		in = catalog.AddResourceInput{
			Year:    req.Year,
			Branch:  req.Branch,
			Subject: req.Subject,
			Title:   req.Title,
			Type:    req.Type,
			URL:     req.URL,
		}
		if in.Type == "" {
			in.Type = models.TypeLink
		}
	}
	in.IfMatch = r.Header.Get("If-Match")

	res, err := h.svc.AddResource(r.Context(), in)
	if err != nil {
		writeError(w, "add resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// RenameNode handles PATCH /api/nodes/{id}.
//
//	@Summary		Rename a year, branch or subject, or retitle a resource
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string			true	"Node id"
//	@Param			If-Match	header	string			false	"Catalog ETag for optimistic concurrency"
//	@Param			body		body	RenameRequest	true	"New name"
//	@Success		200		{object}	NodeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [patch]
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	node, err := h.svc.Rename(r.Context(), id, req.Name, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "rename node", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /api/nodes/{id}.
//
//	@Summary		Delete a node and everything under it
//	@Tags			nodes
//	@Param			id			path	string	true	"Node id"
//	@Param			If-Match	header	string	false	"Catalog ETag for optimistic concurrency"
//	@Success		204		"Node deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Delete(r.Context(), id, r.Header.Get("If-Match")); err != nil {
		writeError(w, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
