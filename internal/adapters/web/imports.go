package web

import (
	"net/http"
	"strconv"
	"strings"
)

const importBodyLimit = 10 << 20 // 10 MB

func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	importType := r.URL.Query().Get("type")
	headers, err := s.app.Importer.Template(importType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+importType+`-template.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(headers, ",") + "\n"))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(importBodyLimit); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	explicit, _ := strconv.Atoi(r.FormValue("stationId"))
	stationID, err := stationFor(r, explicit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	importType := r.FormValue("type")
	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file field is required")
		return
	}
	defer file.Close()

	result, err := s.app.Importer.Import(r.Context(), stationID, importType, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), stationID)
	writeJSON(w, http.StatusOK, result)
}
