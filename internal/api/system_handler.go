package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/cache"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/redact"
)

// Pinger reports whether a dependency is reachable. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CacheStatsSource exposes cache counters. *cache.TaskListCache implements it.
type CacheStatsSource interface {
	Stats() cache.Stats
}

// SystemHandler serves the health and operational endpoints.
type SystemHandler struct {
	db     Pinger
	cache  CacheStatsSource
	logger *slog.Logger
}

// NewSystemHandler creates a new SystemHandler. db may be nil, in which case
// readiness skips the database check.
func NewSystemHandler(db Pinger, cache CacheStatsSource, logger *slog.Logger) *SystemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemHandler{
		db:     db,
		cache:  cache,
		logger: logger.With(slog.String("component", "system_handler")),
	}
}

// Health handles GET /health. It answers as long as the process serves HTTP.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to write health check response",
			slog.String("error", err.Error()))
	}
}

// Ready handles GET /ready: 200 when the database answers a ping within two
// seconds, 503 otherwise.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "skipped", CheckedAt: time.Now().UTC()}
	if h.db == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("readiness check failed",
			slog.String("error", redact.Error(err)))
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Database = "ok"
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CacheStats handles GET /api/cache/stats.
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, cache.Stats{})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.cache.Stats())
}
