package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/web/middleware"
	"github.com/JonMunkholm/catalogsync/internal/web/templates"
)

// handleDashboard renders the catalog page. ?report=<id> shows that import
// report; unknown ids are ignored.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	nonces := make(map[string]string, len(middleware.Actions))
	for _, action := range middleware.Actions {
		n, err := s.nonces.Issue(w, r, action)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		nonces[action] = n
	}

	exts := make([]string, 0, len(s.cfg.Import.AllowedExtensions))
	for _, e := range s.cfg.Import.AllowedExtensions {
		exts = append(exts, "."+strings.TrimPrefix(strings.ToLower(e), "."))
	}

	view := templates.DashboardView{
		CatalogName:  s.service.CatalogName(),
		Columns:      columnViews(s.service.Registry()),
		ImportNonce:  nonces[middleware.ActionImport],
		ExportNonce:  nonces[middleware.ActionExport],
		AddTermNonce: nonces[middleware.ActionAddTerm],
		NonceField:   middleware.NonceField,
		MaxUploadMB:  s.service.MaxFileSize() >> 20,
		Accept:       strings.Join(exts, ","),
	}
	if id := r.URL.Query().Get("report"); id != "" {
		if report, ok := s.service.Report(id); ok {
			view.Report = reportView(report)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(view).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Catalog       string `json:"catalog"`
	Attributes    int    `json:"attributes"`
	ActiveImports int    `json:"active_imports"`
	MaxImports    int    `json:"max_imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.Limiter().Status()
	writeJSON(w, HealthResponse{
		Status:        "ok",
		Catalog:       s.service.CatalogName(),
		Attributes:    s.service.Registry().Len(),
		ActiveImports: status.Active,
		MaxImports:    status.MaxConcurrent,
	})
}

// AttributesResponse lists the registry in header order.
type AttributesResponse struct {
	Required   []string            `json:"required"`
	Attributes []core.AttributeDef `json:"attributes"`
}

func (s *Server) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Registry()
	writeJSON(w, AttributesResponse{
		Required:   reg.RequiredColumns(),
		Attributes: reg.Attributes(),
	})
}

// handleNonce issues a nonce for API clients. The response also sets the
// session cookie the nonce is bound to.
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if !middleware.KnownAction(action) {
		s.respondError(w, r, middleware.ErrUnknownAction, http.StatusNotFound)
		return
	}

	nonce, err := s.nonces.Issue(w, r, action)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"action": action, "nonce": nonce})
}
