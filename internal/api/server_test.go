package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/sheetgen/internal/config"
	"github.com/dgallion1/sheetgen/internal/ocr"
	"github.com/dgallion1/sheetgen/internal/pipeline"
	"github.com/dgallion1/sheetgen/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSheet = "Fourth Generation\n\n119. **Jane Doe** was born in [Springfield](https://example.org/springfield).\nShe was a seamstress.\n\nJane married John Smith in 1920.\n\n120. Anna Berg\n"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubRecognizer struct {
	text string
	err  error
}

func (s stubRecognizer) Name() string { return "stub" }

func (s stubRecognizer) Recognize(ctx context.Context, image []byte, progress ocr.ProgressFunc) (string, error) {
	progress(ocr.Progress{Phase: ocr.PhaseRecognizing, Fraction: 1})
	return s.text, s.err
}

func newTestServer(t *testing.T, apiKey string, rec ocr.Recognizer) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = apiKey
	cfg.WorkerCount = 1
	cfg.MaxUploadBytes = 1 << 20
	cfg.StateFile = filepath.Join(t.TempDir(), "state.json")

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	stats := ocr.NewStats(time.Hour)
	orch := pipeline.NewOrchestrator(cfg, ocr.Timed(rec, stats), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, stats, state.NewStore(cfg.StateFile), log, cfg)
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "secret", stubRecognizer{})
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret", stubRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/stats/ocr", nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/ocr", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/ocr", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, do(t, srv, req).Code)
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/stats/ocr", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtract_JSON(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	body, _ := json.Marshal(map[string]string{"text": sampleSheet})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, true, out["extracted"])
	assert.Equal(t, "Fourth Generation", out["generation_title"])
	persons := out["persons"].([]any)
	require.Len(t, persons, 2)

	first := persons[0].(map[string]any)
	assert.Equal(t, "119", first["number"])
	assert.Equal(t, "Jane Doe", first["name"])
	assert.Equal(t, `<b>Jane Doe</b> was born in <a href="https://example.org/springfield" target="_blank" rel="noopener noreferrer">Springfield</a>.<br>She was a seamstress.`, first["main_paragraph"])
	assert.Equal(t, []any{"Jane married John Smith in 1920."}, first["sub_paragraphs"])
}

func TestExtract_PlainText(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader("7. Erik Lund"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Len(t, out["persons"], 1)
}

func TestExtract_NoMarkers(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"text":"just a heading"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["extracted"])
	assert.Equal(t, []any{}, out["persons"])
}

func TestExtract_BadRequests(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})

	cases := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"missing text", "application/json", `{}`, http.StatusBadRequest},
		{"broken json", "application/json", `{"text":`, http.StatusBadRequest},
		{"invalid utf8", "text/plain", "1. Anna \xff", http.StatusBadRequest},
		{"unsupported type", "image/png", "x", http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := do(t, srv, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Contains(t, decode(t, rec), "error")
		})
	}
}

func TestExtractFile(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	body, ct := multipartBody(t, "file", "sheet.md", []byte(sampleSheet))
	req := httptest.NewRequest(http.MethodPost, "/api/extract/file", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "Fourth Generation", out["generation_title"])
	assert.Len(t, out["persons"], 2)
}

func TestExtractFile_Unsupported(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	body, ct := multipartBody(t, "file", "sheet.xlsx", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/extract/file", body)
	req.Header.Set("Content-Type", ct)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, req).Code)
}

func submitImage(t *testing.T, srv http.Handler, image []byte) string {
	t.Helper()
	body, ct := multipartBody(t, "image", "scan.png", image)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, srv, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	out := decode(t, rec)
	jobID := out["job_id"].(string)
	assert.Equal(t, "/api/ocr/"+jobID+"/status", out["poll_url"])
	return jobID
}

func waitForJob(t *testing.T, srv http.Handler, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/"+jobID+"/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		if pipeline.JobStatus(out["status"].(string)).Terminal() {
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return nil
}

func TestOCRFlow(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{text: sampleSheet})
	jobID := submitImage(t, srv, pngHeader)

	status := waitForJob(t, srv, jobID)
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, float64(2), status["persons"])

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/"+jobID+"/document", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fourth Generation", decode(t, rec)["generation_title"])

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/"+jobID+"/sheet", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<h1>Fourth Generation</h1>")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/"+jobID+"/sheet.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/stats/ocr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "stub", out["provider"])
	assert.Equal(t, float64(1), out["stats"].(map[string]any)["count"])
}

func TestOCRFailedJob(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{err: io.ErrUnexpectedEOF})
	jobID := submitImage(t, srv, pngHeader)

	status := waitForJob(t, srv, jobID)
	assert.Equal(t, "failed", status["status"])

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/"+jobID+"/document", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOCRRejectsNonImage(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	body, ct := multipartBody(t, "image", "notes.png", []byte("plain text, not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", ct)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, req).Code)
}

func TestOCRSubmitAfterShutdown(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{text: sampleSheet})
	srv.orchestrator.Stop()

	body, ct := multipartBody(t, "image", "late.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, srv, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "shutting down")
}

func TestOCRUnknownJob(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	for _, path := range []string{"status", "document", "sheet", "sheet.pdf"} {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/ocr/nope/"+path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRender_RebuildsMarkup(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})
	body := `{"generation_title":"Fifth Generation","persons":[
		{"number":"3","raw_text":"3. Anna Berg lived in [Uppsala](https://example.org).","main_paragraph":"<script>alert(1)</script>"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/render?format=html", strings.NewReader(body))

	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := rec.Body.String()
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, `<b>Anna Berg</b> lived in <a href="https://example.org" target="_blank" rel="noopener noreferrer">Uppsala</a>.`)
}

func TestRender_PDFAndBadFormat(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})

	req := httptest.NewRequest(http.MethodPost, "/api/render?format=pdf", strings.NewReader(`{"persons":[]}`))
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	req = httptest.NewRequest(http.MethodPost, "/api/render?format=rtf", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, req).Code)
}

func TestState(t *testing.T) {
	srv := newTestServer(t, "", stubRecognizer{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/state", strings.NewReader("{broken")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	saved := `{"documents":[],"active":null}`
	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/state", strings.NewReader(saved)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, saved, rec.Body.String())
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"sheet.txt":        "sheet.txt",
		"../../etc/passwd": "passwd",
		"a..b.md":          "a_b.md",
		"":                 "unnamed",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
