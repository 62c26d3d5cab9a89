package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/source"
)

type extractRequest struct {
	Text *string `json:"text"`
}

// extractResponse is the document plus whether anything was found. An empty
// document is still a 200: no markers is a valid outcome.
type extractResponse struct {
	Extracted bool `json:"extracted"`
	*genealogy.Document
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var text string
	switch mediaType {
	case "text/plain":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		text = string(data)
	case "application/json", "":
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Text == nil {
			jsonError(w, "text is required", http.StatusBadRequest)
			return
		}
		text = *req.Text
	default:
		jsonError(w, "unsupported content type: "+mediaType, http.StatusUnsupportedMediaType)
		return
	}

	s.extractAndRespond(w, r, text)
}

func (s *Server) handleExtractFile(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !source.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	loader, err := source.ForFile(filename, source.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	text, err := loader.Load(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Error("load failed", "filename", filename, "error", err)
		jsonError(w, "failed to read document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.extractAndRespond(w, r, text)
}

func (s *Server) extractAndRespond(w http.ResponseWriter, r *http.Request, text string) {
	doc, err := s.orchestrator.ExtractText(text)
	if errors.Is(err, genealogy.ErrMalformedInput) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	annotate(r, "persons", len(doc.Persons), "text_bytes", len(text))
	writeJSON(w, http.StatusOK, extractResponse{Extracted: !doc.Empty(), Document: doc})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
