package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roman-kulish/wardriver/internal/export"
	"github.com/roman-kulish/wardriver/internal/storage"
)

// NewRouter exposes the Service as a read-only JSON API.
func NewRouter(svc *Service, logger *slog.Logger) *mux.Router {
	h := handlers{svc: svc, logger: logger.With(slog.String("component", "status"))}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/current", h.current).Methods(http.MethodGet)
	api.HandleFunc("/totals", h.totals).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.sessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}/export", h.export).Methods(http.MethodGet)
	api.HandleFunc("/networks", h.networks).Methods(http.MethodGet)
	api.HandleFunc("/map", h.mapPoints).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	return r
}

type handlers struct {
	svc    *Service
	logger *slog.Logger
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Current(r.Context())
	h.respond(w, r, c, err)
}

func (h *handlers) totals(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Totals(r.Context())
	h.respond(w, r, t, err)
}

func (h *handlers) sessions(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Sessions(r.Context())
	h.respond(w, r, s, err)
}

func (h *handlers) networks(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Networks(r.Context())
	h.respond(w, r, n, err)
}

func (h *handlers) mapPoints(w http.ResponseWriter, r *http.Request) {
	var sessionID int64
	if v := r.URL.Query().Get("session"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "invalid session", http.StatusBadRequest)
			return
		}
		sessionID = id
	}

	points, err := h.svc.Map(r.Context(), sessionID)
	h.respond(w, r, points, err)
}

func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid session", http.StatusBadRequest)
		return
	}

	format := export.FormatCSV
	if v := r.URL.Query().Get("format"); v != "" {
		if format, err = export.ParseFormat(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// buffered so that a failure can still become an error status
	var buf bytes.Buffer
	if err = h.svc.Export(r.Context(), &buf, sessionID, format); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(sessionID)))
	_, _ = io.Copy(w, &buf)
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("error writing response", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	h.logger.Error("status query failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving status: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down status server: %w", err)
		}
		return nil
	}
}
