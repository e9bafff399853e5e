package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jlmsdev/webCarros/internal/adapter/rest/middleware"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/jlmsdev/webCarros/internal/platform/metrics"
)

type RouterDeps struct {
	Handler       *Handler
	Authenticator middleware.Authenticator
	Metrics       *metrics.Manager
	Logger        *logger.Logger
	ServiceName   string
}

func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if deps.ServiceName != "" {
		r.Use(middleware.Tracing(deps.ServiceName))
	}
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))

	h := deps.Handler
	r.Get("/healthz", h.HandleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/api/listings", h.HandleSearchListings)
	r.Get("/api/listings/{id}", h.HandleGetListing)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator, deps.Logger))

		r.Post("/api/listings", h.HandleSubmitListing)
		r.Delete("/api/listings/{id}", h.HandleDeleteListing)
		r.Get("/api/me/listings", h.HandleMyListings)

		r.Get("/api/drafts/me", h.HandleGetDraft)
		r.Patch("/api/drafts/me", h.HandleUpdateDraft)
		r.Delete("/api/drafts/me", h.HandleDiscardDraft)
		r.Post("/api/drafts/me/images", h.HandleSubmitImage)
		r.Delete("/api/drafts/me/images/{name}", h.HandleRemoveImage)

		r.Get("/api/auth/me", h.HandleMe)
		r.Post("/api/auth/logout", h.HandleLogout)
	})
	return r
}
