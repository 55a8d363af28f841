package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete terms, term assignments and custom attributes",
		Long: `Delete every term, term assignment, custom attribute and setting.
Products are kept. Runs only when delete_on_uninstall is enabled, unless
--force is given.`,
		Example: `  catalogsync settings set --delete-on-uninstall && catalogsync purge
  catalogsync purge --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Purger().Purge(cmd.Context(), force); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog purged")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "purge even when delete_on_uninstall is off")
	return cmd
}
