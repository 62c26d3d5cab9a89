package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
	"github.com/dgallion1/sheetgen/internal/pipeline"
	"github.com/dgallion1/sheetgen/internal/render"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleOCRSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "image is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read image", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("image exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if mt := ocr.DetectMIMEType(data); !strings.HasPrefix(mt, "image/") && mt != "application/pdf" {
		jsonError(w, "unsupported image type: "+mt, http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(sanitizeFilename(header.Filename), data)
	annotate(r, "job_id", job.ID, "image_bytes", len(data))
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/ocr/%s/status", job.ID),
	})
}

func (s *Server) handleOCRStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleOCRDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.finishedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Extracted: !doc.Empty(), Document: doc})
}

func (s *Server) handleOCRSheet(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.finishedDocument(w, r); ok {
		s.writeSheet(w, doc, render.FormatHTML)
	}
}

func (s *Server) handleOCRSheetPDF(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.finishedDocument(w, r); ok {
		s.writeSheet(w, doc, render.FormatPDF)
	}
}

// finishedDocument looks up the job's document, answering 404 for unknown
// jobs, 409 while the job is still running and 422 when it failed.
func (s *Server) finishedDocument(w http.ResponseWriter, r *http.Request) (*genealogy.Document, bool) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	snap := job.Snapshot()
	switch {
	case snap.Status == pipeline.StatusFailed:
		jsonError(w, "job failed: "+strings.Join(snap.Errors, "; "), http.StatusUnprocessableEntity)
		return nil, false
	case !snap.Status.Terminal():
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return nil, false
	}
	_, doc := job.Result()
	return doc, true
}

// writeSheet renders into a buffer first so a rendering error can still be
// reported as JSON.
func (s *Server) writeSheet(w http.ResponseWriter, doc *genealogy.Document, f render.Format) {
	var buf bytes.Buffer
	if err := render.Render(&buf, doc, f); err != nil {
		s.log.Error("render failed", "format", f, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Write(buf.Bytes())
}
