package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geniusappsio/tramita/pkg/database/migrations"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := migrations.Up(cmd.Context(), ctx.ensureConfig().Postgres.DSN)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
				return nil
			}
			for _, v := range versions {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %05d\n", v)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := migrations.Down(cmd.Context(), ctx.ensureConfig().Postgres.DSN)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %05d\n", version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := migrations.List(cmd.Context(), ctx.ensureConfig().Postgres.DSN)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				rows = append(rows, []string{fmt.Sprintf("%05d", s.Version), s.Name, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Version", "File", "State"}, rows, nil))
			return nil
		},
	})

	return cmd
}
