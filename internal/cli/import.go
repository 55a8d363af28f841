package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

func newImportCmd() *cobra.Command {
	var dryRun, preview, asJSON bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import products from a spreadsheet",
		Long: `Import products from an .xlsx or .csv file.

Rows are matched to existing products by Identifier. New identifiers create
products, known ones are updated. Rows that fail validation are ignored and
listed in the report.`,
		Example: `  # Import a catalog
  catalogsync import products.xlsx

  # Count what would change without writing
  catalogsync import products.xlsx --dry-run

  # Show new rows, update diffs and rejected rows
  catalogsync import products.xlsx --preview --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := actorContext(cmd)
			out := cmd.OutOrStdout()

			if preview {
				resp, err := app.Service.Preview(ctx, args[0])
				if err != nil {
					return userError(err)
				}
				if asJSON {
					return writeJSON(out, resp)
				}
				printPreview(out, resp)
				return nil
			}

			report, err := app.Service.ImportFile(ctx, args[0], core.ImportOptions{DryRun: dryRun})
			if report == nil {
				return userError(err)
			}
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}
			if !report.IsSuccessful() {
				return errImportFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and count changes without writing")
	cmd.Flags().BoolVar(&preview, "preview", false, "show what the import would change")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "preview")
	return cmd
}

func printReport(w io.Writer, r *core.ImportReport) {
	fmt.Fprintln(w, r.Message())
	if len(r.Errors) > 1 {
		for _, e := range r.Errors[1:] {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}

	if len(r.CreatedTerms) > 0 {
		fmt.Fprintln(w, "\nNew terms:")
		for _, t := range r.CreatedTerms {
			fmt.Fprintf(w, "  %s: %s\n", t.Attribute, t.Term)
		}
	}

	if len(r.IgnoredRows) > 0 {
		fmt.Fprintf(w, "\nIgnored rows (%d):\n", len(r.IgnoredRows))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  ROW\tSKU\tCODE\tREASON")
		for _, ig := range r.IgnoredRows {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", ig.Row, ig.SKU, ig.Code, ig.Reason)
		}
		tw.Flush()
	}
}

func printPreview(w io.Writer, p *core.PreviewResponse) {
	s := p.Summary
	fmt.Fprintf(w, "%d rows: %d new, %d updates, %d errors\n", s.TotalRows, s.NewRows, s.UpdateRows, s.ErrorRows)

	for _, d := range p.UpdateDiffs {
		fmt.Fprintf(w, "\nrow %d %s\n", d.LineNumber, d.SKU)
		for _, col := range d.Changed {
			fmt.Fprintf(w, "  %s: %q -> %q\n", col, d.Current[col], d.Incoming[col])
		}
	}
	if len(p.ErrorSamples) > 0 {
		fmt.Fprintln(w, "\nRejected rows:")
		for _, e := range p.ErrorSamples {
			fmt.Fprintf(w, "  row %d %s: %s\n", e.Row, e.SKU, e.Reason)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
