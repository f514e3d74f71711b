// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the routes and middleware stack.
func NewRouter(h *Handler, mw *Middleware) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.Observe())
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(SecurityHeaders())

		r.Delete("/", h.EndSession)

		r.Route("/sections", func(r chi.Router) {
			r.Get("/", h.ListSections)
			r.Post("/refresh", h.RefreshAll)
			r.Get("/{sectionID}", h.GetSection)
			r.Post("/{sectionID}/refresh", h.RefreshSection)
		})

		r.With(mw.FeedbackRateLimit()).Post("/feedback", h.RecordFeedback)

		r.Get("/profile", h.GetProfile)
		r.Post("/profile/recompute", h.RecomputeProfile)

		r.Get("/interactions", h.ListInteractions)
		r.Delete("/interactions", h.ResetInteractions)
	})

	return r
}
