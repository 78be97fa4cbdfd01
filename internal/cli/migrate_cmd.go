package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("no database configured; set database.enabled or use the postgres sink")

func newMigrateCmd(app *App) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default: database.migrations_path, then the bundled migrations)")

	run := func(use, short string, fn func(cmd *cobra.Command, m Migrator) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if app.OpenMigrator == nil {
					return errNoDatabase
				}
				m, err := app.OpenMigrator(path)
				if err != nil {
					return fmt.Errorf("opening migrator: %w", err)
				}
				defer m.Close()
				return fn(cmd, m)
			},
		}
	}

	cmd.AddCommand(
		run("up", "Apply all pending migrations", func(cmd *cobra.Command, m Migrator) error {
			if err := m.Up(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		}),
		run("down", "Roll back every migration", func(cmd *cobra.Command, m Migrator) error {
			if err := m.Down(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations rolled back")
			return nil
		}),
		run("version", "Print the current schema version", func(cmd *cobra.Command, m Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s)\n", version, state)
			return nil
		}),
	)

	return cmd
}
