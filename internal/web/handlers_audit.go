package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// ReportListItem is one entry of GET /api/reports.
type ReportListItem struct {
	ID       string             `json:"id"`
	FileName string             `json:"file_name"`
	Actor    string             `json:"actor,omitempty"`
	DryRun   bool               `json:"dry_run"`
	Message  string             `json:"message"`
	Summary  core.ReportSummary `json:"summary"`
}

// handleListReports lists the kept import reports, newest first.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports := s.service.Reports()
	out := make([]ReportListItem, len(reports))
	for i, rep := range reports {
		out[i] = ReportListItem{
			ID:       rep.ID,
			FileName: rep.FileName,
			Actor:    rep.Actor,
			DryRun:   rep.DryRun,
			Message:  rep.Message(),
			Summary:  rep.Summary(),
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.service.Report(chi.URLParam(r, "reportID"))
	if !ok {
		s.respondError(w, r, core.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, importResponse(report))
}
