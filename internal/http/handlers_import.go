package http

import (
	"net/http"

	"finanzas/internal/importer"
	applog "finanzas/internal/log"
)

// mountImports registers POST /{entity}/import-{entity} for every
// importable collection.
func (s *Server) mountImports(mux *http.ServeMux) {
	for _, entity := range importer.Entities {
		mux.HandleFunc("POST /"+entity+"/import-"+entity, s.handleImport(entity))
	}
}

// handleImport runs one import. Settings are checked on every call so a
// misconfigured server fails before contacting the legacy API.
func (s *Server) handleImport(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := applog.FromContext(r.Context())
		rec, err := importer.FromConfig(s.repo, s.cfg, logger)
		if err != nil {
			writeError(w, r, applog.OpImport, err, "import failed")
			return
		}
		res, err := rec.WithPublisher(s.svc.Movements.Publisher()).Import(r.Context(), entity)
		if err != nil {
			writeError(w, r, applog.OpImport, err, "import failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
