package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/codex-kinarow/internal/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service) http.Handler {
	return NewServerWithLogger(s, log.Logger)
}

// NewServerWithLogger is NewServer with an explicit access logger.
func NewServerWithLogger(s *app.Service, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request-id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("http-request")
	}))
	r.Use(middleware.Recoverer)

	h := &handlers{svc: s, tpl: loadTemplates()}
	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	r.Route("/api/game/{id}", func(r chi.Router) {
		r.Get("/", h.apiGet)
		r.Post("/suggest", h.apiSuggest)
		r.Post("/reset", h.apiReset)
	})
	return r
}
