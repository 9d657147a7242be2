package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/studyshelf/internal/catalog"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// AuthMode is one of AuthModeDisabled, AuthModeToken, AuthModeReadOnly.
	AuthMode string
	Token    string
	// MaxUploadBytes caps POST /resources bodies.
	MaxUploadBytes int64
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted. Reads are
// public; mutations go through AuthMiddleware.
func NewRouter(svc *catalog.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.MaxUploadBytes)

	r := chi.NewRouter()

	// Reads.
	r.Get("/catalog", h.Catalog)
	r.Get("/resources", h.Resources)
	r.Get("/search", h.Search)
	r.Get("/manifest", h.Manifest)
	r.Get("/files/{filename}", h.ServeFile)
	r.Get("/resources/{id}/file", h.ResourceFile)

	// Mutations.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthMode, cfg.Token))
		r.Post("/resources", h.CreateResource)
		r.Patch("/nodes/{id}", h.RenameNode)
		r.Delete("/nodes/{id}", h.DeleteNode)
	})

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
