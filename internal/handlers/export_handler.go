package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
)

// ExportHandler serves bookmark archive downloads. Chrome gets the nested
// JSON tree; Firefox and Safari both take Netscape HTML.
type ExportHandler struct {
	exporter interfaces.ExportService
	logger   arbor.ILogger
}

func NewExportHandler(exporter interfaces.ExportService, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
		logger:   logger,
	}
}

// HandleExport handles GET /api/export?format=chrome|firefox|safari with
// an optional categoryId filter.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "chrome"
	}

	categoryID, err := QueryInt64Ptr(r, "categoryId")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "categoryId must be an integer")
		return
	}

	var (
		body        []byte
		contentType string
		ext         string
	)
	switch format {
	case "chrome":
		body, err = h.exporter.ExportJSON(r.Context(), categoryID)
		contentType = "application/json"
		ext = "json"
	case "firefox", "safari":
		var html string
		html, err = h.exporter.ExportHTML(r.Context(), categoryID)
		body = []byte(html)
		contentType = "text/html"
		ext = "html"
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}

	filename := fmt.Sprintf("fury_bookmarks_%s_%s.%s", format, time.Now().Format("2006-01-02"), ext)
	h.logger.Info().Str("format", format).Int("bytes", len(body)).Msg("Export generated")

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
