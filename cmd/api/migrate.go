package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projectmanager/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables, collections and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := deps.Store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is ready (%s).\n", deps.Config.DBDriver)
			return nil
		},
	}
}

func dropCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Remove every table and collection the service created",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop data without --yes")
			}
			deps, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := deps.Store.Drop(cmd.Context()); err != nil {
				return err
			}
			logger.SystemLogger.Warn("All data dropped")
			fmt.Fprintln(cmd.OutOrStdout(), "All data dropped.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}
