// Package templates renders the dashboard from typed view models. Handlers
// build the view models; nothing here reads the catalog.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// ColumnView is one spreadsheet column as shown in the column reference.
type ColumnView struct {
	Column       string
	Key          string
	Label        string
	Hierarchical bool
	Required     bool
}

// RowIssue is an ignored row in the last report.
type RowIssue struct {
	Row    int
	SKU    string
	Code   string
	Reason string
}

// ReportView summarises one import run.
type ReportView struct {
	ID           string
	FileName     string
	Message      string
	Successful   bool
	DryRun       bool
	Created      int
	Updated      int
	TermsCreated int
	Ignored      int
	Processed    int
	Errors       []string
	IgnoredRows  []RowIssue
	CreatedTerms []string
}

// DashboardView is everything the dashboard page shows.
type DashboardView struct {
	CatalogName  string
	Columns      []ColumnView
	Report       *ReportView
	ImportNonce  string
	ExportNonce  string
	AddTermNonce string
	MaxUploadMB  int64
	Accept       string // file input accept attribute, e.g. ".xlsx,.xls,.csv"
	NonceField   string
}

// Attributes returns the attribute columns, the ones terms can be added to.
func (v DashboardView) Attributes() []ColumnView {
	var out []ColumnView
	for _, c := range v.Columns {
		if !c.Required {
			out = append(out, c)
		}
	}
	return out
}

// html accumulates markup and keeps the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s ...string) {
	for _, part := range s {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *html) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *html) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *html) hidden(name, value string) {
	h.raw(`<input type="hidden"`)
	h.attr("name", name)
	h.attr("value", value)
	h.raw(">")
}

// Dashboard renders the catalog page: upload form, export and template
// downloads, the add-term form, the last report and the column reference.
func Dashboard(v DashboardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(v.CatalogName)
		h.raw(` catalog</title></head><body><main>`)
		h.raw(`<h1>`)
		h.text(v.CatalogName)
		h.raw(`</h1>`)

		if v.Report != nil {
			renderReport(h, v.Report)
		}

		h.raw(`<section id="import"><h2>Import</h2>`)
		h.raw(`<form method="post" action="/import" enctype="multipart/form-data">`)
		h.hidden(v.NonceField, v.ImportNonce)
		h.raw(`<input type="file" name="excel_file" required`)
		h.attr("accept", v.Accept)
		h.raw(`><label><input type="checkbox" name="dry_run" value="1"> Dry run</label>`)
		h.raw(`<button type="submit">Import</button>`)
		h.raw(`<p>Maximum file size `, strconv.FormatInt(v.MaxUploadMB, 10), ` MB.</p></form></section>`)

		h.raw(`<section id="export"><h2>Export</h2>`)
		h.raw(`<form method="post" action="/export">`)
		h.hidden(v.NonceField, v.ExportNonce)
		h.raw(`<button type="submit">Download catalog</button></form>`)
		h.raw(`<a href="/api/template">Download empty template</a></section>`)

		h.raw(`<section id="terms"><h2>Add term</h2>`)
		h.raw(`<form method="post" action="/api/terms">`)
		h.hidden(v.NonceField, v.AddTermNonce)
		h.raw(`<select name="attribute" required>`)
		for _, c := range v.Attributes() {
			h.raw(`<option`)
			h.attr("value", c.Key)
			h.raw(`>`)
			h.text(c.Label)
			h.raw(`</option>`)
		}
		h.raw(`</select><input type="text" name="name" maxlength="200" required>`)
		h.raw(`<button type="submit">Add</button></form></section>`)

		renderColumns(h, v.Columns)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

func renderReport(h *html, r *ReportView) {
	class := "report report-success"
	if !r.Successful {
		class = "report report-failure"
	}
	h.raw(`<section`)
	h.attr("class", class)
	h.attr("id", "report-"+r.ID)
	h.raw(`><h2>Last import: `)
	h.text(r.FileName)
	h.raw(`</h2><p>`)
	h.text(r.Message)
	h.raw(`</p><dl>`)
	for _, kv := range []struct {
		k string
		v int
	}{
		{"Created", r.Created},
		{"Updated", r.Updated},
		{"New terms", r.TermsCreated},
		{"Ignored", r.Ignored},
		{"Processed", r.Processed},
	} {
		h.raw(`<dt>`, kv.k, `</dt><dd>`, strconv.Itoa(kv.v), `</dd>`)
	}
	h.raw(`</dl>`)

	if len(r.Errors) > 0 {
		h.raw(`<ul class="errors">`)
		for _, e := range r.Errors {
			h.raw(`<li>`)
			h.text(e)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	}

	if len(r.IgnoredRows) > 0 {
		h.raw(`<table class="ignored"><thead><tr><th>Row</th><th>SKU</th><th>Code</th><th>Reason</th></tr></thead><tbody>`)
		for _, row := range r.IgnoredRows {
			h.raw(`<tr><td>`, strconv.Itoa(row.Row), `</td><td>`)
			h.text(row.SKU)
			h.raw(`</td><td>`)
			h.text(row.Code)
			h.raw(`</td><td>`)
			h.text(row.Reason)
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	}

	if len(r.CreatedTerms) > 0 {
		h.raw(`<p>New terms: `)
		for i, t := range r.CreatedTerms {
			if i > 0 {
				h.raw(", ")
			}
			h.text(t)
		}
		h.raw(`</p>`)
	}
	h.raw(`</section>`)
}

func renderColumns(h *html, cols []ColumnView) {
	h.raw(`<section id="columns"><h2>Columns</h2><table><thead><tr><th>Column</th><th>Key</th><th>Label</th><th></th></tr></thead><tbody>`)
	for _, c := range cols {
		h.raw(`<tr><td>`)
		h.text(c.Column)
		h.raw(`</td><td>`)
		h.text(c.Key)
		h.raw(`</td><td>`)
		h.text(c.Label)
		h.raw(`</td><td>`)
		switch {
		case c.Required:
			h.raw(`required`)
		case c.Hierarchical:
			h.raw(`hierarchical`)
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table></section>`)
}

// ErrorAlert renders an error fragment for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><p>`)
		h.text(message)
		h.raw(`</p>`)
		if action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<small>`)
		h.text(code)
		h.raw(`</small></div>`)
		return h.err
	})
}
