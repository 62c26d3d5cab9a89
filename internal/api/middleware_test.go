package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/api/ocr/{jobID}/status", func(w http.ResponseWriter, r *http.Request) {
		annotate(r, "persons", 2)
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	})
	r.Get("/api/ocr/{jobID}/document", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "job not found", http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ocr/abc-123/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "/api/ocr/{jobID}/status", line["route"])
	assert.Equal(t, "abc-123", line["job_id"])
	assert.EqualValues(t, 2, line["persons"])
	assert.EqualValues(t, 200, line["status"])
	assert.EqualValues(t, rec.Body.Len(), line["bytes"])
	assert.NotEmpty(t, line["request_id"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/ocr/nope/document", nil))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "WARN", line["level"])
	assert.EqualValues(t, 404, line["status"])
}

func TestAnnotateWithoutLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotPanics(t, func() { annotate(req, "k", "v") })
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer secret", "secret", true},
		{"bearer secret", "secret", true},
		{"Bearer   secret ", "secret", true},
		{"Bearer ", "", false},
		{"Basic c2VjcmV0", "", false},
		{"secret", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, ok := bearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestAuthMiddleware_LogsRejectedKey(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := AuthMiddleware("secret", log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, buf.String(), "rejected api key")

	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
