package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/brandvault/internal/assetservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *assetservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.ListAssets)
		r.Post("/", h.CreateAsset)
		r.Post("/upload", h.UploadAsset)
		r.Get("/{id}", h.GetAsset)
		r.Put("/{id}", h.UpdateAsset)
		r.Delete("/{id}", h.DeleteAsset)
		r.Put("/{id}/file", h.ReplaceAssetFile)
	})
	r.Get("/brands/{brand}/palette", h.Palette)

	r.Route("/images", func(r chi.Router) {
		r.Get("/", h.ListImages)
		r.Post("/upload", h.UploadImage)
		r.Post("/import", h.ImportImage)
		r.Get("/{id}", h.GetImage)
		r.Delete("/{id}", h.DeleteImage)
	})

	r.Post("/repair", h.Repair)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
