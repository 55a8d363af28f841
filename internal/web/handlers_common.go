package web

// Shared helpers for the handlers: JSON and workbook responses, and the
// mapping from core types to response and view models.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/web/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with status. Encoding errors are only logged
// since the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// sendWorkbook streams f as an attachment named filename and closes it.
func sendWorkbook(w http.ResponseWriter, f *excelize.File, filename string) error {
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")
	return core.WriteTo(f, w)
}

// ImportResponse is the JSON body of an import run.
type ImportResponse struct {
	Message string             `json:"message"`
	Summary core.ReportSummary `json:"summary"`
	Report  *core.ImportReport `json:"report"`
}

func importResponse(r *core.ImportReport) ImportResponse {
	return ImportResponse{Message: r.Message(), Summary: r.Summary(), Report: r}
}

// ProductResponse is a product as returned by GET /api/products.
type ProductResponse struct {
	ID          int64                  `json:"id"`
	Identifier  string                 `json:"identifier"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Price       string                 `json:"price"`
	Attributes  map[string][]core.Term `json:"attributes"`
	UpdatedAt   string                 `json:"updated_at"`
}

func productResponse(p core.Product) ProductResponse {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string][]core.Term{}
	}
	return ProductResponse{
		ID:          p.ID,
		Identifier:  p.Identifier,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Attributes:  attrs,
		UpdatedAt:   p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func reportView(r *core.ImportReport) *templates.ReportView {
	v := &templates.ReportView{
		ID:           r.ID,
		FileName:     r.FileName,
		Message:      r.Message(),
		Successful:   r.IsSuccessful(),
		DryRun:       r.DryRun,
		Created:      r.Created,
		Updated:      r.Updated,
		TermsCreated: r.TermsAdded,
		Ignored:      r.RowsIgnored(),
		Processed:    r.TotalProcessed(),
		Errors:       r.Errors,
	}
	for _, ig := range r.IgnoredRows {
		v.IgnoredRows = append(v.IgnoredRows, templates.RowIssue{
			Row: ig.Row, SKU: ig.SKU, Code: string(ig.Code), Reason: ig.Reason,
		})
	}
	for _, t := range r.CreatedTerms {
		v.CreatedTerms = append(v.CreatedTerms, t.Attribute+": "+t.Term)
	}
	return v
}

func columnViews(reg *core.SchemaRegistry) []templates.ColumnView {
	var cols []templates.ColumnView
	for _, c := range reg.RequiredColumns() {
		cols = append(cols, templates.ColumnView{Column: c, Label: c, Required: true})
	}
	for _, def := range reg.Attributes() {
		cols = append(cols, templates.ColumnView{
			Column:       def.Column,
			Key:          def.Key,
			Label:        def.Label,
			Hierarchical: def.Hierarchical,
		})
	}
	return cols
}
