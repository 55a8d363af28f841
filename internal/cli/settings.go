package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change catalog settings",
	}
	cmd.AddCommand(newSettingsShowCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			settings, err := app.Service.Settings(cmd.Context())
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delete_on_uninstall: %t\n", settings.DeleteOnUninstall)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var deleteOnUninstall bool

	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Change settings given as flags",
		Example: `  catalogsync settings set --delete-on-uninstall`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("delete-on-uninstall") {
				return fmt.Errorf("nothing to set; pass --delete-on-uninstall=true|false")
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			settings, err := app.Service.Settings(cmd.Context())
			if err != nil {
				return userError(err)
			}
			settings.DeleteOnUninstall = deleteOnUninstall
			if err := app.Service.SaveSettings(cmd.Context(), settings); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delete_on_uninstall: %t\n", settings.DeleteOnUninstall)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteOnUninstall, "delete-on-uninstall", false, "purge terms and custom attributes on uninstall")
	return cmd
}
