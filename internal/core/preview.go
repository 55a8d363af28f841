package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows  int `json:"totalRows"`
	NewRows    int `json:"newRows"`
	UpdateRows int `json:"updateRows"`
	ErrorRows  int `json:"errorRows"`
}

// RowPreview represents a single row that would be created.
type RowPreview struct {
	LineNumber int               `json:"lineNumber"`
	SKU        string            `json:"sku"`
	Values     map[string]string `json:"values"`
}

// UpdateDiff is a before/after view of a product that would be updated.
type UpdateDiff struct {
	LineNumber int               `json:"lineNumber"`
	SKU        string            `json:"sku"`
	Current    map[string]string `json:"current"`
	Incoming   map[string]string `json:"incoming"`
	Changed    []string          `json:"changed"`
}

// PreviewResponse is the read-only analysis of a catalog file.
type PreviewResponse struct {
	Columns          []string       `json:"columns"`
	Summary          PreviewSummary `json:"summary"`
	NewRowSamples    []RowPreview   `json:"newRowSamples"`
	UpdateDiffs      []UpdateDiff   `json:"updateDiffs"`
	ErrorSamples     []IgnoredRow   `json:"errorSamples"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Sample limits
const (
	maxNewRowSamples = 10
	maxUpdateDiffs   = 10
	maxErrorSamples  = 20
)

// Preview reads and validates a catalog file, classifies every row as new,
// update or error and returns samples of each. Nothing is written.
func (s *Service) Preview(ctx context.Context, path string) (*PreviewResponse, error) {
	start := time.Now()
	reg := s.Registry()
	validator := NewRowValidator(reg)

	resp := &PreviewResponse{
		NewRowSamples: []RowPreview{},
		UpdateDiffs:   []UpdateDiff{},
		ErrorSamples:  []IgnoredRow{},
	}

	err := NewSpreadsheetReader(reg, s.cfg.Reader).Each(path, func(row SpreadsheetRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if resp.Columns == nil {
			resp.Columns = row.Columns
		}
		resp.Summary.TotalRows++

		p, rej := validator.Validate(row)
		if rej != nil {
			resp.Summary.ErrorRows++
			if len(resp.ErrorSamples) < maxErrorSamples {
				resp.ErrorSamples = append(resp.ErrorSamples, IgnoredRow{
					Row: rej.Row, SKU: rej.Identifier, Code: rej.Code, Reason: rej.Reason,
				})
			}
			return nil
		}

		incoming := previewValues(p, reg)
		current, err := s.store.FindByIdentifier(ctx, p.Identifier)
		switch {
		case errors.Is(err, ErrNotFound):
			resp.Summary.NewRows++
			if len(resp.NewRowSamples) < maxNewRowSamples {
				resp.NewRowSamples = append(resp.NewRowSamples, RowPreview{
					LineNumber: p.Row, SKU: p.Identifier, Values: incoming,
				})
			}
		case err != nil:
			return &StoreError{Op: "find product", Err: err}
		default:
			resp.Summary.UpdateRows++
			if len(resp.UpdateDiffs) < maxUpdateDiffs {
				resp.UpdateDiffs = append(resp.UpdateDiffs, diffProduct(p.Row, current, incoming, reg))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", path, err)
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// PreviewUpload validates and spools an uploaded file, then previews it.
func (s *Service) PreviewUpload(ctx context.Context, name string, size int64, body io.Reader) (*PreviewResponse, error) {
	path, err := s.spoolUpload(name, size, body)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)
	return s.Preview(ctx, path)
}

// previewValues renders a validated row keyed by column name.
func previewValues(p ValidatedProduct, reg *SchemaRegistry) map[string]string {
	values := map[string]string{
		ColumnIdentifier:  p.Identifier,
		ColumnTitle:       p.Title,
		ColumnDescription: p.Description,
		ColumnPrice:       p.Price,
	}
	for _, def := range reg.Attributes() {
		values[def.Column] = p.Attributes[def.Key]
	}
	return values
}

func diffProduct(line int, current Product, incoming map[string]string, reg *SchemaRegistry) UpdateDiff {
	cur := map[string]string{
		ColumnIdentifier:  current.Identifier,
		ColumnTitle:       current.Title,
		ColumnDescription: current.Description,
		ColumnPrice:       current.Price,
	}
	for _, def := range reg.Attributes() {
		cur[def.Column] = current.FirstTerm(def.Key)
	}

	// An empty attribute cell leaves existing terms alone, so it is not a change.
	var changed []string
	for _, col := range reg.Headers() {
		in := incoming[col]
		if in == "" && reg.IsAttributeColumn(col) {
			continue
		}
		if cur[col] != in {
			changed = append(changed, col)
		}
	}

	return UpdateDiff{
		LineNumber: line,
		SKU:        current.Identifier,
		Current:    cur,
		Incoming:   incoming,
		Changed:    changed,
	}
}
