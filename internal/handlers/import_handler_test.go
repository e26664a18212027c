package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// stubImporter records the call and replays a canned event stream.
type stubImporter struct {
	gotArchive string
	gotOpts    interfaces.ImportOptions
	events     []models.ImportEvent
	err        error
}

func (s *stubImporter) Import(ctx context.Context, archiveHTML string, opts interfaces.ImportOptions, sink interfaces.EventSink) error {
	s.gotArchive = archiveHTML
	s.gotOpts = opts
	for _, ev := range s.events {
		sink.Emit(ev)
	}
	return s.err
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(fileContent))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func importerConfig() *common.ImporterConfig {
	return &common.ImporterConfig{MaxUploadSize: 1024 * 1024}
}

func TestImportStreamsEvents(t *testing.T) {
	imp := &stubImporter{events: []models.ImportEvent{
		{Name: models.EventInit, Data: models.InitPayload{TotalInFile: 1, UniqueBookmarks: 1}},
		{Name: models.EventComplete, Data: models.CompletePayload{TotalInFile: 1}},
	}}
	h := NewImportHandler(imp, importerConfig(), arbor.NewLogger())

	body, contentType := multipartBody(t, nil, "bookmarks.html", "<dl><dt><a href=\"https://go.dev\">Go</a></dt></dl>")
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: init\n")
	assert.Contains(t, out, "event: complete\n")
	assert.Contains(t, out, `"totalInFile":1`)
	assert.True(t, strings.HasSuffix(out, "\n\n"), "frames end with a blank line")

	assert.Equal(t, "bookmarks.html", imp.gotOpts.FileName)
	assert.Contains(t, imp.gotArchive, "go.dev")
}

func TestImportPassesCustomCategories(t *testing.T) {
	imp := &stubImporter{}
	h := NewImportHandler(imp, importerConfig(), arbor.NewLogger())

	fields := map[string]string{
		"customCategories": `[{"tempId":"a","name":"Reading","slug":"reading","level":1}]`,
		"replaceExisting":  "true",
	}
	body, contentType := multipartBody(t, fields, "bookmarks.html", "<dl></dl>")
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, imp.gotOpts.CustomCategories, 1)
	assert.Equal(t, "reading", imp.gotOpts.CustomCategories[0].Slug)
	assert.True(t, imp.gotOpts.ReplaceExisting)
}

func TestImportRejectsMissingFile(t *testing.T) {
	h := NewImportHandler(&stubImporter{}, importerConfig(), arbor.NewLogger())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRejectsBadCustomCategories(t *testing.T) {
	h := NewImportHandler(&stubImporter{}, importerConfig(), arbor.NewLogger())

	fields := map[string]string{"customCategories": "{not json"}
	body, contentType := multipartBody(t, fields, "bookmarks.html", "<dl></dl>")
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRejectsGet(t *testing.T) {
	h := NewImportHandler(&stubImporter{}, importerConfig(), arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.HandleImport(rec, httptest.NewRequest(http.MethodGet, "/api/import", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
