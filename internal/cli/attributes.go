package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsync/internal/config"
)

func newAttributesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attributes",
		Aliases: []string{"attrs"},
		Short:   "List and register attribute columns",
	}
	cmd.AddCommand(newAttributesListCmd(), newAttributesAddCmd(), newAttributesDumpCmd())
	return cmd
}

func newAttributesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the spreadsheet columns in export order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			reg := app.Service.Registry()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tKEY\tLABEL\tKIND")
			for _, c := range reg.RequiredColumns() {
				fmt.Fprintf(tw, "%s\t-\t%s\trequired\n", c, c)
			}
			for _, def := range reg.Attributes() {
				kind := "attribute"
				if def.Hierarchical {
					kind = "hierarchical"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Column, def.Key, def.Label, kind)
			}
			return tw.Flush()
		},
	}
}

func newAttributesAddCmd() *cobra.Command {
	var hierarchical bool

	cmd := &cobra.Command{
		Use:   "add COLUMN",
		Short: "Register a custom attribute column",
		Long: `Register a custom attribute column. The key is derived from the column
name. Imports reject columns that are not registered.`,
		Example: `  catalogsync attributes add BRAND
  catalogsync attributes add "SUB CATEGORY" --hierarchical`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			def, created, err := app.Service.RegisterAttribute(cmd.Context(), args[0], hierarchical)
			if err != nil {
				return userError(err)
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered as %s\n", def.Column, def.Key)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s\n", def.Column, def.Key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&hierarchical, "hierarchical", false, "terms of this attribute may nest")
	return cmd
}

func newAttributesDumpCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the registered attributes as a catalog file",
		Long: `Print a catalog.yaml holding the catalog name and the custom attributes.
With --all the builtin attributes are included too.`,
		Example: `  catalogsync attributes dump > catalog.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			defs := app.Service.Registry().Attributes()
			if !all {
				if defs, err = app.Store.CustomAttributes(cmd.Context()); err != nil {
					return userError(err)
				}
			}

			doc := config.CatalogFile{Name: app.Service.CatalogName()}
			for _, def := range defs {
				doc.Attributes = append(doc.Attributes, config.AttributeSeed{
					Column:       def.Column,
					Key:          def.Key,
					Label:        def.Label,
					Hierarchical: def.Hierarchical,
				})
			}
			return config.WriteCatalogFile(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include builtin attributes")
	return cmd
}
