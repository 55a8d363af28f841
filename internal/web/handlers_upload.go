package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// uploadField is the multipart field holding the catalog file.
const uploadField = "excel_file"

// uploadedFile returns the single file in uploadField. The guard may already
// have parsed the form while looking for the nonce.
func uploadedFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, nil, uploadError(err)
		}
	}

	headers := r.MultipartForm.File[uploadField]
	switch {
	case len(headers) == 0:
		return nil, nil, core.ErrNoFile
	case len(headers) > 1:
		return nil, nil, core.ErrMultipleFiles
	}

	file, err := headers[0].Open()
	if err != nil {
		return nil, nil, uploadError(err)
	}
	return file, headers[0], nil
}

func uploadError(err error) error {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return core.ErrFileTooLarge
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return core.ErrNoFile
	}
	return err
}

// handleImport runs an import of the uploaded file. Browsers are redirected
// to the dashboard showing the report; JSON clients get the report.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	opts := core.ImportOptions{DryRun: r.FormValue("dry_run") != ""}
	report, err := s.service.ImportUpload(r.Context(), header.Filename, header.Size, file, opts)
	if report == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if wantsJSON(r) {
		status := http.StatusOK
		if !report.IsSuccessful() {
			status = http.StatusUnprocessableEntity
		}
		writeJSONStatus(w, status, importResponse(report))
		return
	}
	http.Redirect(w, r, "/?report="+report.ID, http.StatusSeeOther)
}

// handlePreview analyzes the uploaded file without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	result, err := s.service.PreviewUpload(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, result)
}
