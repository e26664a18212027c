package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
)

// StatusHandler serves the service status, version and health endpoints.
type StatusHandler struct {
	storage   interfaces.StorageManager
	llm       interfaces.LLMService
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
	startedAt time.Time
}

func NewStatusHandler(storage interfaces.StorageManager, llm interfaces.LLMService, scheduler interfaces.SchedulerService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		llm:       llm,
		scheduler: scheduler,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// HandleStatus handles GET /api/status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	bookmarks, err := h.storage.BookmarkStorage().Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count bookmarks: %v", err))
		return
	}
	categories, err := h.storage.CategoryStorage().Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count categories: %v", err))
		return
	}

	status := map[string]interface{}{
		"service":          "fury",
		"version":          common.GetVersion(),
		"uptime_seconds":   int(time.Since(h.startedAt).Seconds()),
		"background_tasks": common.GetGoroutineCount(),
		"bookmarks":        bookmarks,
		"categories":       categories,
		"llm": map[string]interface{}{
			"provider":  h.llm.Provider(),
			"available": h.llm.Available(),
		},
	}
	if h.scheduler != nil {
		status["scheduler"] = map[string]interface{}{
			"running": h.scheduler.IsRunning(),
			"jobs":    h.scheduler.JobStatuses(),
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion handles GET /api/version.
func (h *StatusHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// HandleHealth handles GET /api/health: liveness plus a storage ping.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := h.storage.Ping(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
