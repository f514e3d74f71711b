// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/culturefeed/internal/logging"
	"github.com/tomtom215/culturefeed/internal/recommend"
	"github.com/tomtom215/culturefeed/internal/session"
	"github.com/tomtom215/culturefeed/internal/validation"
)

// Sessions is the part of session.Registry the handlers use.
type Sessions interface {
	Get(ctx context.Context, userID string) (*recommend.Engine, error)
	Evict(userID string) bool
	Len() int
}

var _ Sessions = (*session.Registry)(nil)

// Handler serves the API routes.
type Handler struct {
	sessions Sessions
	started  time.Time

	// MaxRefreshWait bounds ?wait=true on refresh.
	MaxRefreshWait time.Duration
}

// NewHandler creates a Handler over sessions.
func NewHandler(sessions Sessions) *Handler {
	return &Handler{
		sessions:       sessions,
		started:        time.Now(),
		MaxRefreshWait: 15 * time.Second,
	}
}

// engine resolves {userID} and writes the error response itself on failure.
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*recommend.Engine, bool) {
	userID := chi.URLParam(r, "userID")
	if err := validation.GetValidator().Var(userID, "required,max=128,printascii"); err != nil {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeBadRequest, "invalid user id")
		return nil, false
	}
	e, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return e, true
}

// Health reports liveness and the number of live sessions.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthResponse{
		Status:   "ok",
		Sessions: h.sessions.Len(),
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
	})
}

// ListSections returns a snapshot of every configured section.
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	ids := e.SectionIDs()
	out := make([]recommend.SectionSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := e.GetSection(id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		out = append(out, snap)
	}
	NewResponseWriter(w, r).Success(out)
}

// GetSection returns one section snapshot. ?limit= truncates the ranked
// items; without it the section's own limit applies.
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	snap, err := e.GetSection(chi.URLParam(r, "sectionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if limit > 0 && len(snap.Items) > limit {
		snap.Items = snap.Items[:limit]
	}
	NewResponseWriter(w, r).Success(snap)
}

// RefreshSection starts a refresh. With ?wait=true it waits for the refresh
// to be applied, bounded by MaxRefreshWait, and answers 200 instead of 202.
func (h *Handler) RefreshSection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "sectionID")
	done, err := e.RefreshSection(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	waited := false
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		waited = h.await(r.Context(), done)
	}

	snap, err := e.GetSection(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := RefreshResponse{Sections: []recommend.SectionSnapshot{snap}, Waited: waited}
	if waited {
		NewResponseWriter(w, r).Success(resp)
		return
	}
	NewResponseWriter(w, r).Accepted(resp)
}

func (h *Handler) await(ctx context.Context, done <-chan struct{}) bool {
	timer := time.NewTimer(h.MaxRefreshWait)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// RefreshAll starts a refresh of every section.
func (h *Handler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := e.RefreshAll(); err != nil {
		respondError(w, r, err)
		return
	}
	ids := e.SectionIDs()
	resp := RefreshResponse{Sections: make([]recommend.SectionSnapshot, 0, len(ids))}
	for _, id := range ids {
		if snap, err := e.GetSection(id); err == nil {
			resp.Sections = append(resp.Sections, snap)
		}
	}
	NewResponseWriter(w, r).Accepted(resp)
}

// RecordFeedback validates and records one feedback event.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, verr)
		return
	}

	if err := e.RecordFeedback(r.Context(), req.ItemID, recommend.EventType(req.Type), req.Snapshot()); err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().
		Str("item_id", req.ItemID).
		Str("type", req.Type).
		Msg("feedback recorded")

	NewResponseWriter(w, r).Accepted(FeedbackResponse{
		Accepted:           true,
		ItemID:             req.ItemID,
		Type:               req.Type,
		EventCount:         e.InteractionCount(),
		PersistenceHealthy: e.PersistenceHealthy(),
	})
}

// GetProfile returns the current preference profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(e.CurrentProfile())
}

// RecomputeProfile rebuilds the profile from the log now and returns it.
func (h *Handler) RecomputeProfile(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(e.RecomputeNow())
}

// ListInteractions returns the most recent events, newest first.
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultInteractions)
	if err != nil {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(e.RecentInteractions(limit))
}

// ResetInteractions clears the user's log and profile.
func (h *Handler) ResetInteractions(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	e.ResetInteractions()
	logging.Ctx(r.Context()).Info().Msg("interaction log reset")
	NewResponseWriter(w, r).NoContent()
}

// EndSession closes the user's engine, persisting its state.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Evict(chi.URLParam(r, "userID")) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "no active session")
		return
	}
	NewResponseWriter(w, r).NoContent()
}
