package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (log streaming + lifecycle events)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Import pipeline
	mux.HandleFunc("/api/import", s.app.ImportHandler.HandleImport)    // POST multipart, SSE response
	mux.HandleFunc("/api/analyze", s.app.AnalyzeHandler.HandleAnalyze) // POST - taxonomy preview, no persistence

	// API routes - Categories
	mux.HandleFunc("/api/categories", s.app.CategoryHandler.HandleList)
	mux.HandleFunc("/api/categories/bulk", s.app.CategoryHandler.HandleBulkCreate)
	mux.HandleFunc("/api/categories/merge", s.app.CategoryHandler.HandleMerge)

	// API routes - Bookmarks
	mux.HandleFunc("/api/bookmarks", s.app.BookmarkHandler.HandleList)
	mux.HandleFunc("/api/bookmarks/count", s.app.BookmarkHandler.HandleCount)
	mux.HandleFunc("/api/bookmarks/", s.handleBookmarkRoutes) // GET /{id}

	// API routes - Sessions and export
	mux.HandleFunc("/api/sessions", s.app.SessionHandler.HandleList)
	mux.HandleFunc("/api/export", s.app.ExportHandler.HandleExport)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.HandleStatus)
	mux.HandleFunc("/api/version", s.app.StatusHandler.HandleVersion)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HandleHealth)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleBookmarkRoutes routes /api/bookmarks/{id} and subpaths.
func (s *Server) handleBookmarkRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// /api/bookmarks/count is registered explicitly; anything else under
	// the prefix is an id lookup.
	if path == "/api/bookmarks/count" {
		s.app.BookmarkHandler.HandleCount(w, r)
		return
	}

	if len(path) > len("/api/bookmarks/") {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet: s.app.BookmarkHandler.HandleGet,
		})
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.app.Logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Unmatched API route")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"status":"error","error":"not found"}`))
}
