package core

import (
	"fmt"
	"time"
)

// IgnoredRow records a data row that was skipped.
type IgnoredRow struct {
	Row    int        `json:"row"`
	SKU    string     `json:"sku"`
	Code   RejectCode `json:"code"`
	Reason string     `json:"reason"`
}

// CreatedTerm records a term value created during an import.
type CreatedTerm struct {
	Term      string `json:"term"`
	Attribute string `json:"attribute"`
}

// ImportReport accumulates the outcome of one import run.
// It is written by a single run and read after the run completes.
type ImportReport struct {
	ID         string        `json:"id"`
	FileName   string        `json:"file_name"`
	Actor      string        `json:"actor,omitempty"`
	Phase      ImportPhase   `json:"phase"`
	Chunked    bool          `json:"chunked"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	RowsRead   int           `json:"rows_read"`
	Created    int           `json:"products_created"`
	Updated    int           `json:"products_updated"`
	TermsAdded int           `json:"terms_created"`

	// Truncated is set when the run stopped before the end of the file,
	// for example on the import timeout. Rows before StoppedAtRow were applied.
	Truncated    bool `json:"truncated"`
	StoppedAtRow int  `json:"stopped_at_row,omitempty"`

	Errors       []string      `json:"errors"`
	IgnoredRows  []IgnoredRow  `json:"ignored_rows"`
	CreatedTerms []CreatedTerm `json:"created_terms"`
}

// NewImportReport creates an empty report in the reading phase.
func NewImportReport(id, fileName string) *ImportReport {
	return &ImportReport{
		ID:           id,
		FileName:     fileName,
		Phase:        PhaseReading,
		StartedAt:    time.Now(),
		Errors:       []string{},
		IgnoredRows:  []IgnoredRow{},
		CreatedTerms: []CreatedTerm{},
	}
}

// AddError records a file or header level failure.
func (r *ImportReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddIgnored records a skipped row.
func (r *ImportReport) AddIgnored(rej RowRejection) {
	r.IgnoredRows = append(r.IgnoredRows, IgnoredRow{
		Row:    rej.Row,
		SKU:    rej.Identifier,
		Code:   rej.Code,
		Reason: rej.Reason,
	})
}

// AddCreatedTerm records a newly created term.
func (r *ImportReport) AddCreatedTerm(term, attribute string) {
	r.TermsAdded++
	r.CreatedTerms = append(r.CreatedTerms, CreatedTerm{Term: term, Attribute: attribute})
}

// RowsIgnored returns the number of skipped rows.
func (r *ImportReport) RowsIgnored() int {
	return len(r.IgnoredRows)
}

// TotalProcessed returns created plus updated.
func (r *ImportReport) TotalProcessed() int {
	return r.Created + r.Updated
}

// HasErrors reports whether a file or header level failure was recorded.
// Ignored rows do not count.
func (r *ImportReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// IsSuccessful reports whether the run read the whole file without file
// errors and changed at least one product.
func (r *ImportReport) IsSuccessful() bool {
	return !r.HasErrors() && !r.Truncated && r.TotalProcessed() > 0
}

// Stop records that the run ended before row. Rows already applied stay
// applied and are still counted.
func (r *ImportReport) Stop(row int) {
	r.Truncated = true
	r.StoppedAtRow = row
}

// AllRowsIgnored reports whether rows were read but none was processed.
func (r *ImportReport) AllRowsIgnored() bool {
	return !r.HasErrors() && r.TotalProcessed() == 0 && r.RowsIgnored() > 0
}

// Finish stamps the duration and final phase.
func (r *ImportReport) Finish() {
	r.Duration = time.Since(r.StartedAt)
	switch {
	case r.HasErrors():
		r.Phase = PhaseFailed
	case r.Truncated:
		r.Phase = PhaseStopped
	default:
		r.Phase = PhaseComplete
	}
}

// ReportSummary is the flat count view of a report.
type ReportSummary struct {
	ProductsCreated int  `json:"products_created"`
	ProductsUpdated int  `json:"products_updated"`
	TermsCreated    int  `json:"terms_created"`
	RowsIgnored     int  `json:"rows_ignored"`
	TotalProcessed  int  `json:"total_processed"`
	HasErrors       bool `json:"has_errors"`
	Truncated       bool `json:"truncated"`
	IsSuccessful    bool `json:"is_successful"`
}

// Summary returns the count view.
func (r *ImportReport) Summary() ReportSummary {
	return ReportSummary{
		ProductsCreated: r.Created,
		ProductsUpdated: r.Updated,
		TermsCreated:    r.TermsAdded,
		RowsIgnored:     r.RowsIgnored(),
		TotalProcessed:  r.TotalProcessed(),
		HasErrors:       r.HasErrors(),
		Truncated:       r.Truncated,
		IsSuccessful:    r.IsSuccessful(),
	}
}

// Message returns the one-line outcome shown after an import. A run that
// failed before reading rows and a run whose every row was ignored get
// different wording.
func (r *ImportReport) Message() string {
	switch {
	case r.HasErrors():
		return "Import failed: " + r.Errors[0]
	case r.Truncated:
		return fmt.Sprintf("Import stopped at row %d before the end of the file. "+
			"Created: %d, Updated: %d, New terms: %d. Rows from row %d on were not imported.",
			r.StoppedAtRow, r.Created, r.Updated, r.TermsAdded, r.StoppedAtRow)
	case r.AllRowsIgnored():
		return fmt.Sprintf("No products were imported. All %d rows were ignored due to errors. "+
			"Please review the ignored rows below and fix the issues in your Excel file.", r.RowsIgnored())
	case r.DryRun:
		return fmt.Sprintf("Dry run completed. Would create: %d, Would update: %d, New terms: %d",
			r.Created, r.Updated, r.TermsAdded)
	default:
		return fmt.Sprintf("Import completed successfully! Created: %d, Updated: %d, New terms: %d",
			r.Created, r.Updated, r.TermsAdded)
	}
}
