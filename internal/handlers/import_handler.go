package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// ImportHandler exposes the streaming import endpoint. The response is a
// long-lived SSE stream; every pipeline event becomes one frame and the
// terminal frame is always complete or error.
type ImportHandler struct {
	importer interfaces.ImportService
	config   *common.ImporterConfig
	logger   arbor.ILogger
}

func NewImportHandler(importer interfaces.ImportService, config *common.ImporterConfig, logger arbor.ILogger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		config:   config,
		logger:   logger,
	}
}

// sseSink writes import events as SSE frames. A dead consumer turns the
// sink into a no-op instead of blocking the pipeline.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  arbor.ILogger

	mu   sync.Mutex
	dead bool
}

func (s *sseSink) Emit(event models.ImportEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", event.Name).Msg("Failed to marshal SSE event")
		return
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
		s.dead = true
		return
	}
	s.flusher.Flush()
}

// HandleImport handles POST /api/import: multipart form with a required
// file field and an optional customCategories JSON tree. Closing the
// stream cancels the run.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	maxUpload := int64(h.config.MaxUploadSize)
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	archive, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	opts := interfaces.ImportOptions{FileName: header.Filename}
	if raw := r.FormValue("customCategories"); raw != "" {
		tree, err := parseCategoryTree([]byte(raw))
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid customCategories: %v", err))
			return
		}
		opts.CustomCategories = tree
	}
	if raw := r.FormValue("replaceExisting"); raw != "" {
		opts.ReplaceExisting, _ = strconv.ParseBool(raw)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	h.logger.Info().Str("file", header.Filename).Int("bytes", len(archive)).Msg("Import started")

	sink := &sseSink{w: w, flusher: flusher, logger: h.logger}
	if err := h.importer.Import(r.Context(), string(archive), opts, sink); err != nil {
		// Terminal error frame already emitted by the pipeline
		h.logger.Warn().Err(err).Str("file", header.Filename).Msg("Import ended with error")
	}
}

// parseCategoryTree accepts either a bare array of categories or an
// object wrapping it in a categories field.
func parseCategoryTree(raw []byte) ([]*models.DiscoveredCategory, error) {
	var tree []*models.DiscoveredCategory
	if err := json.Unmarshal(raw, &tree); err == nil {
		return tree, nil
	}

	var wrapped struct {
		Categories []*models.DiscoveredCategory `json:"categories"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Categories) == 0 {
		return nil, fmt.Errorf("no categories found")
	}
	return wrapped.Categories, nil
}
