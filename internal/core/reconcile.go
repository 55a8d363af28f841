package core

// reconcile.go applies validated rows to the catalog.
//
// Each row is independent: a failure while saving one row is recorded as an
// ignored row and the run moves on. Rows already written stay written; the
// run is a best-effort batch, not a transaction.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ReconciliationEngine decides create versus update per row and writes
// through the catalog and term stores.
type ReconciliationEngine struct {
	catalog  CatalogStore
	terms    TermStore
	registry *SchemaRegistry
	dryRun   bool

	// planned tracks terms a dry run would create, keyed by attribute and name.
	planned map[string]bool
}

// NewReconciliationEngine creates an engine for one run.
func NewReconciliationEngine(catalog CatalogStore, terms TermStore, registry *SchemaRegistry) *ReconciliationEngine {
	return &ReconciliationEngine{
		catalog:  catalog,
		terms:    terms,
		registry: registry,
		planned:  make(map[string]bool),
	}
}

// DryRun makes the engine count what it would do without writing.
func (e *ReconciliationEngine) DryRun(enabled bool) *ReconciliationEngine {
	e.dryRun = enabled
	return e
}

// ImportRows validates and applies rows in order, accumulating into report.
func (e *ReconciliationEngine) ImportRows(ctx context.Context, rows []SpreadsheetRow, report *ImportReport) {
	v := NewRowValidator(e.registry)
	for _, row := range rows {
		e.ApplyRow(ctx, v, row, report)
	}
}

// ApplyRow validates one row with v and applies it. Rejections and store
// failures land in report; nothing is returned because no row failure stops a run.
func (e *ReconciliationEngine) ApplyRow(ctx context.Context, v *RowValidator, row SpreadsheetRow, report *ImportReport) {
	report.RowsRead++

	product, rej := v.Validate(row)
	if rej != nil {
		report.AddIgnored(*rej)
		return
	}

	if err := e.apply(ctx, product, report); err != nil {
		slog.Warn("row import failed",
			"row", product.Row,
			"identifier", product.Identifier,
			"error", err,
		)
		report.AddIgnored(RowRejection{
			Row:        product.Row,
			Identifier: product.Identifier,
			Code:       RejectStore,
			Reason:     "Error: " + rootMessage(err),
		})
	}
}

// termResolution is a term looked up or created for one row.
type termResolution struct {
	attribute string
	term      Term
}

func (e *ReconciliationEngine) apply(ctx context.Context, p ValidatedProduct, report *ImportReport) error {
	existing, err := e.catalog.FindByIdentifier(ctx, p.Identifier)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return &StoreError{Op: "find product", Err: err}
	}

	if e.dryRun {
		return e.plan(ctx, p, found, report)
	}

	// Terms are resolved before the product is written so a term failure
	// leaves the product untouched. Created terms are counted even if the
	// product write fails afterwards; they exist in the store either way.
	resolved, err := e.resolveTerms(ctx, p.Attributes, report)
	if err != nil {
		return err
	}

	fields := ProductFields{
		Identifier:  p.Identifier,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
	}

	var productID int64
	if found {
		productID = existing.ID
		if err := e.catalog.UpdateProduct(ctx, productID, fields); err != nil {
			return &StoreError{Op: "update product", Err: err}
		}
	} else {
		productID, err = e.catalog.CreateProduct(ctx, fields)
		if err != nil {
			return &StoreError{Op: "create product", Err: err}
		}
	}

	for _, res := range resolved {
		if err := e.terms.AssignTerms(ctx, productID, res.attribute, []int64{res.term.ID}); err != nil {
			return &StoreError{Op: "assign terms", Err: err}
		}
	}

	if found {
		report.Updated++
	} else {
		report.Created++
	}
	return nil
}

// resolveTerms looks up or creates every attribute term of a row, in
// attribute key order.
func (e *ReconciliationEngine) resolveTerms(ctx context.Context, attrs map[string]string, report *ImportReport) ([]termResolution, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]termResolution, 0, len(keys))
	for _, key := range keys {
		name := attrs[key]
		term, created, err := e.findOrCreateTerm(ctx, key, name)
		if err != nil {
			return nil, err
		}
		if created {
			report.AddCreatedTerm(term.Name, key)
		}
		out = append(out, termResolution{attribute: key, term: term})
	}
	return out, nil
}

func (e *ReconciliationEngine) findOrCreateTerm(ctx context.Context, attribute, name string) (Term, bool, error) {
	term, err := e.terms.FindTermByName(ctx, attribute, name)
	if err == nil {
		return term, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Term{}, false, &StoreError{Op: "find term", Err: err}
	}

	term, err = e.terms.CreateTerm(ctx, attribute, name, TermSlug(name))
	if errors.Is(err, ErrTermExists) {
		// Created concurrently; reuse it.
		term, err = e.terms.FindTermByName(ctx, attribute, name)
		if err != nil {
			return Term{}, false, &StoreError{Op: "find term", Err: err}
		}
		return term, false, nil
	}
	if err != nil {
		return Term{}, false, &StoreError{Op: fmt.Sprintf("create term %q", name), Err: err}
	}
	return term, true, nil
}

// plan counts the effect of a row without writing.
func (e *ReconciliationEngine) plan(ctx context.Context, p ValidatedProduct, found bool, report *ImportReport) error {
	type pending struct{ attribute, name string }
	var newTerms []pending

	for key, name := range p.Attributes {
		_, err := e.terms.FindTermByName(ctx, key, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return &StoreError{Op: "find term", Err: err}
		}
		if mark := key + "\x00" + name; !e.planned[mark] {
			e.planned[mark] = true
			newTerms = append(newTerms, pending{key, name})
		}
	}

	if found {
		report.Updated++
	} else {
		report.Created++
	}
	sort.Slice(newTerms, func(i, j int) bool { return newTerms[i].attribute < newTerms[j].attribute })
	for _, t := range newTerms {
		report.AddCreatedTerm(t.name, t.attribute)
	}
	return nil
}

// rootMessage unwraps StoreError so users see the store's own message.
func rootMessage(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
