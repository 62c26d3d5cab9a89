package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/render"
)

// handleRender renders a posted document. Only numbers and raw text are taken
// from the request: markup is rebuilt from RawText, so nothing the client
// sends reaches the sheet unescaped.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var in genealogy.Document
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.writeSheet(w, in.Rebuild(), format)
}
