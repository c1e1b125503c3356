package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/pkg/migrate"
)

func migrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage goose schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: the migrations built into the binary)")

	source := func() fs.FS {
		if dir == "" {
			return migrate.Embedded()
		}
		return os.DirFS(dir)
	}

	migrator := func(cmd *cobra.Command) (*migrate.Migrator, error) {
		client, err := a.database(cmd.Context())
		if err != nil {
			return nil, err
		}
		if a.cfg.FeatureFlags.UseSQLite {
			return nil, errors.New("goose migrations target postgres; sqlite uses automigrate")
		}
		sqlDB, err := client.DB().DB()
		if err != nil {
			return nil, fmt.Errorf("extracting sql.DB: %w", err)
		}
		return migrate.New(sqlDB, source())
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			applied, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]int{"applied": applied})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			return m.Down(cmd.Context())
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			rows, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), rows)
		},
	}

	version := &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to a target version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := migrate.ParseVersion(args[0]); err != nil {
				return err
			}
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			return m.To(cmd.Context(), args[0])
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := dir
			if target == "" {
				target = migrate.DefaultDir
			}
			path, err := migrate.CreateSQLMigration(target, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"created": path})
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateFS(source()); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			return a.print(cmd.OutOrStdout(), map[string]bool{"valid": true})
		},
	}

	cmd.AddCommand(up, down, status, version, create, validate)
	return cmd
}
