package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// AddTermRequest is the JSON body of POST /api/terms. Form posts use the
// same field names.
type AddTermRequest struct {
	Attribute string `json:"attribute"`
	Name      string `json:"name"`
}

// AddTermResponse is returned for a created term.
type AddTermResponse struct {
	TermID int64  `json:"term_id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
}

func (s *Server) handleAddTerm(w http.ResponseWriter, r *http.Request) {
	var req AddTermRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, core.ErrMissingInput, http.StatusBadRequest)
			return
		}
	} else {
		req.Attribute = r.FormValue("attribute")
		req.Name = r.FormValue("name")
	}

	term, err := s.service.AddTerm(r.Context(), req.Attribute, req.Name)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSONStatus(w, http.StatusCreated, AddTermResponse{TermID: term.ID, Name: term.Name, Slug: term.Slug})
}
