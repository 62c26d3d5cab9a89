package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/sheetgen/internal/state"
)

func (s *Server) handleLoadState(w http.ResponseWriter, r *http.Request) {
	data, err := s.state.Load()
	if errors.Is(err, state.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load state failed", "error", err)
		jsonError(w, "failed to load state", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	err := s.state.Import(r.Body, s.cfg.MaxUploadBytes)
	if errors.Is(err, state.ErrInvalidJSON) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, state.ErrTooLarge) {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		s.log.Error("save state failed", "error", err)
		jsonError(w, "failed to save state: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
