package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", app.UploadHandler)
			r.Get("/", app.ListVideosHandler)
			r.Get("/{id}", app.GetVideoHandler)
			r.Get("/{id}/stream", app.StreamVideoHandler)
			r.Post("/{id}/analyses", app.StartAnalysisHandler)
			r.Get("/{id}/analyses", app.ListAnalysesHandler)
		})

		r.Get("/analyses/{analysisID}", app.GetAnalysisHandler)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/events", app.AnalysisStreamHandler)
			r.Post("/stop", app.StopAnalysisHandler)
		})
	})

	return r
}
