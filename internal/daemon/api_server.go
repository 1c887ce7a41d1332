package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fingergate/internal/api"
	"fingergate/internal/logging"
	"fingergate/internal/match"
	"fingergate/internal/store"
	"fingergate/internal/worker"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

type apiServer struct {
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, handler http.Handler, logger *slog.Logger) (*apiServer, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("api listen: %w", err)
	}
	return &apiServer{
		logger:   logging.NewComponentLogger(logger, "api-server"),
		listener: listener,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

func (s *apiServer) addr() net.Addr {
	return s.listener.Addr()
}

// serve blocks until ctx ends, then shuts the server down.
func (s *apiServer) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", logging.String("address", s.addr().String()))
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown", logging.Error(err))
		}
		<-errCh
		return nil
	}
}

// Handler builds the HTTP router.
func (d *Daemon) Handler() http.Handler {
	logger := logging.NewComponentLogger(d.logger, "api")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(contextRequestID)
	r.Use(middleware.Recoverer)
	r.Use(requireToken(d.cfg.Paths.APIToken, logger))

	h := &handlers{daemon: d, logger: logger}
	r.Get("/api/status", h.status)
	r.Post("/api/identify", h.identify)
	r.Post("/api/enroll", h.enroll)
	r.Get("/api/records", h.records)
	r.Delete("/api/records/{id}", h.deleteRecord)
	r.Get("/api/events", h.events)
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	return r
}

// contextRequestID copies chi's request id into the logging context.
func contextRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

type handlers struct {
	daemon *Daemon
	logger *slog.Logger
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	status := h.daemon.Status(r.Context())
	writeJSON(h.logger, w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		LockFilePath:   status.LockFilePath,
		StorageDriver:  status.StorageDriver,
		StorageTarget:  status.StorageTarget,
		StorageHealthy: status.StorageHealthy,
		Polling:        status.Polling,
		Session:        api.FromSession(status.Session),
		Dependencies:   api.FromDependencies(status.Dependencies),
	})
}

func (h *handlers) identify(w http.ResponseWriter, r *http.Request) {
	ch, err := h.daemon.session.Identify(r.Context())
	h.awaitReport(w, r, ch, err)
}

func (h *handlers) enroll(w http.ResponseWriter, r *http.Request) {
	var req api.EnrollRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if _, err := worker.NormalizeIdentifier(req.Identifier); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, err.Error(), string(match.KindInvalidIdentifier))
		return
	}
	ch, err := h.daemon.session.Enroll(r.Context(), req.Identifier)
	h.awaitReport(w, r, ch, err)
}

// awaitReport waits for the attempt's single report. A client that goes away
// does not stop the attempt.
func (h *handlers) awaitReport(w http.ResponseWriter, r *http.Request, ch <-chan worker.Report, err error) {
	if errors.Is(err, worker.ErrBusy) {
		writeError(h.logger, w, http.StatusConflict, err.Error(), "busy")
		return
	}
	if err != nil {
		writeError(h.logger, w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	select {
	case report, ok := <-ch:
		if !ok {
			writeError(h.logger, w, http.StatusInternalServerError, "attempt ended without a report", "")
			return
		}
		writeJSON(h.logger, w, http.StatusOK, api.FromReport(report))
	case <-r.Context().Done():
		logging.WithContext(r.Context(), h.logger).Info("client left before the attempt reported")
	}
}

func (h *handlers) records(w http.ResponseWriter, r *http.Request) {
	records, err := h.daemon.store.ListSummaries(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.storageError(w, r, "list records", err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, api.RecordListResponse{Records: api.FromRecordSummaries(records)})
}

func (h *handlers) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(h.logger, w, http.StatusBadRequest, "invalid record id", "")
		return
	}
	if err := h.daemon.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(h.logger, w, http.StatusNotFound, "record not found", "")
			return
		}
		h.storageError(w, r, "delete record", err)
		return
	}
	logging.WithContext(r.Context(), h.logger).Info("enrollment deleted", logging.Int64("record_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(h.logger, w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = min(parsed, maxEventLimit)
	}
	events, err := h.daemon.store.ListAccess(r.Context(), limit)
	if err != nil {
		h.storageError(w, r, "list access events", err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, api.EventListResponse{Events: api.FromAccessEvents(events)})
}

func (h *handlers) storageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.daemon.metrics.IncrementStorageError(strings.ReplaceAll(op, " ", "_"))
	logging.ErrorWithContext(logging.WithContext(r.Context(), h.logger), op+" failed", "api_storage_error",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check storage settings and database availability"),
	)
	if errors.Is(err, store.ErrConnect) {
		writeError(h.logger, w, http.StatusServiceUnavailable, "storage unreachable", string(match.KindConnect))
		return
	}
	writeError(h.logger, w, http.StatusInternalServerError, op+" failed", string(match.KindQuery))
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, status int, message, kind string) {
	writeJSON(logger, w, status, api.ErrorResponse{Error: message, Kind: kind})
}
