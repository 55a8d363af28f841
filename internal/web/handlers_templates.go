package web

import (
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// handleTemplate downloads an empty workbook with the header row only.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	f, filename, err := s.service.Template()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if err := sendWorkbook(w, f, filename); err != nil {
		s.logWriteError(r, err)
	}
}

func (s *Server) logWriteError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("write download",
		"path", r.URL.Path,
		"error", err,
	)
}
