package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Manage attribute terms",
	}
	cmd.AddCommand(newTermsAddCmd(), newTermsListCmd())
	return cmd
}

func newTermsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add ATTRIBUTE_KEY NAME",
		Short:   "Add a term to an attribute",
		Example: `  catalogsync terms add gauge 21G`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			term, err := app.Service.AddTerm(actorContext(cmd), args[0], args[1])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created term %d %q (slug %s)\n", term.ID, term.Name, term.Slug)
			return nil
		},
	}
}

func newTermsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list ATTRIBUTE_KEY",
		Short: "List the terms of an attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			terms, err := app.Service.ListTerms(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSLUG")
			for _, t := range terms {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Name, t.Slug)
			}
			return tw.Flush()
		},
	}
}
