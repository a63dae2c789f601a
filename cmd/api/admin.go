package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func createAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long: `Create an admin account. The password may also be given in the
ADMIN_PASSWORD environment variable.

Example:
  projectmanager create-admin --name Admin --email admin@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("--password or ADMIN_PASSWORD is required")
			}
			deps, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := deps.Service.BootstrapAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created with id %s\n", profile.Email, profile.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
