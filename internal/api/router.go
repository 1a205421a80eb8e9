package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/starford/raido/internal/catalogservice"
	"github.com/starford/raido/internal/export"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *catalogservice.Service, disp *export.Dispatcher, authEnabled bool, token string, sseHandler http.Handler, notifier ExportNotifier) chi.Router {
	h := NewHandler(svc, disp, notifier)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Project-Token"},
		MaxAge:         300,
	}))
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog reads.
	r.Get("/datasets", h.ListDatasets)
	r.Get("/datasets/*", h.GetDataset)
	r.Get("/tags", h.ListTags)

	// Exports.
	r.Post("/exports", h.StartExport)
	r.Get("/exports/status", h.ExportStatus)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
