// Package web exposes a read-only HTTP API over the collected data:
// channels, recent shipments, aggregate stats, and per-route duplicate
// listings.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/dedup"
	"github.com/otabekdev/yukmonitor/internal/report"
)

// Server serves the JSON API.
type Server struct {
	store   database.Store
	reports *report.Builder
	logger  *slog.Logger
	http    *http.Server
}

// NewServer builds the API server listening on addr.
func NewServer(addr string, store database.Store, reports *report.Builder, logger *slog.Logger) *Server {
	s := &Server{
		store:   store,
		reports: reports,
		logger:  logger.With("component", "web"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/channels", s.handleChannels)
		r.Get("/shipments", s.handleShipments)
		r.Get("/stats", s.handleStats)
		r.Get("/duplicates", s.handleDuplicates)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP API shutdown failed", "error", err)
			return err
		}
		s.logger.Info("HTTP API stopped gracefully.")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type channelResponse struct {
	ChannelID int64  `json:"channel_id"`
	Title     string `json:"title"`
	IsTracked bool   `json:"is_tracked"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list channels", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to list channels")
		return
	}

	out := make([]channelResponse, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelResponse{
			ChannelID: ch.ChannelID,
			Title:     ch.Title,
			IsTracked: ch.IsTracked,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

// handleShipments lists recent shipments. Optional query filters: days,
// channel_id, origin, destination, phone, since (RFC 3339).
func (s *Server) handleShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	days := report.DefaultExportDays
	if v := q.Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = parsed
	}

	var channelID int64
	if v := q.Get("channel_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "channel_id must be an integer")
			return
		}
		channelID = parsed
	}

	var since time.Time
	if v := q.Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	shipments, err := s.reports.Shipments(r.Context(), days)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load shipments", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to load shipments")
		return
	}

	origin := q.Get("origin")
	destination := q.Get("destination")
	phone := q.Get("phone")

	filtered := make([]report.Shipment, 0, len(shipments))
	for _, sh := range shipments {
		if channelID != 0 && sh.ChannelID != channelID {
			continue
		}
		if origin != "" && !matchesField(sh.Origin, origin) {
			continue
		}
		if destination != "" && !matchesField(sh.Destination, destination) {
			continue
		}
		if phone != "" && !matchesField(sh.Phone, phone) {
			continue
		}
		if !since.IsZero() && sh.Date.Before(since) {
			continue
		}
		filtered = append(filtered, sh)
	}

	s.writeJSON(w, r, http.StatusOK, filtered)
}

func matchesField(field *string, want string) bool {
	return field != nil && strings.EqualFold(*field, want)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.BuildStats(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to build stats", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to build stats")
		return
	}
	s.writeJSON(w, r, http.StatusOK, stats)
}

type duplicateResponse struct {
	MessageID   int64     `json:"message_id"`
	MessageText string    `json:"message_text"`
	MessageDate time.Time `json:"message_date"`
	Duplicate   bool      `json:"duplicate"`
}

type duplicatesResponse struct {
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Total       int                 `json:"total"`
	Duplicates  int                 `json:"duplicates"`
	Shipments   []duplicateResponse `json:"shipments"`
}

// handleDuplicates lists one route's shipments within a channel, newest
// first, with repeated postings flagged.
func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	channelID, err := strconv.ParseInt(q.Get("channel_id"), 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "channel_id must be an integer")
		return
	}
	origin := q.Get("origin")
	if origin == "" {
		s.writeError(w, r, http.StatusBadRequest, "origin is required")
		return
	}
	destination := q.Get("destination")

	rows, err := s.store.ShipmentsForRoute(r.Context(), channelID, origin, destination)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load route shipments", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to load route shipments")
		return
	}

	annotated, summary := dedup.Detect(rows)

	resp := duplicatesResponse{
		Origin:      origin,
		Destination: destination,
		Total:       summary.Total,
		Duplicates:  summary.Duplicates,
		Shipments:   make([]duplicateResponse, 0, len(annotated)),
	}
	for _, a := range annotated {
		resp.Shipments = append(resp.Shipments, duplicateResponse{
			MessageID:   a.TgMessageID,
			MessageText: a.MessageText,
			MessageDate: a.MessageDate,
			Duplicate:   a.Duplicate,
		})
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}
