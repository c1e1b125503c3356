package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

var Version = "dev"

// app carries what every subcommand shares. Config and the database are
// opened lazily so offline commands (pricing quote, migrate create) work
// without a full environment.
type app struct {
	output string
	logg   *logger.Logger
	cfg    *config.Config
	db     *db.Client

	loadConfig func() (*config.Config, error)
	openDB     func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error)
}

func newApp() *app {
	return &app{
		logg:       logger.New(logger.Options{ServiceName: "storefrontctl", Output: os.Stderr}),
		loadConfig: config.Load,
		openDB: func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
			return db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
		},
	}
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logg = logger.New(logger.Options{
		ServiceName: "storefrontctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	return cfg, nil
}

func (a *app) database(ctx context.Context) (*db.Client, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	client, err := a.openDB(ctx, cfg, a.logg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = client
	return client, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logg.Error(context.Background(), "error closing database", err)
	}
}

// print renders v as JSON or YAML depending on --output.
func (a *app) print(w io.Writer, v any) error {
	switch strings.ToLower(a.output) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", a.output)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operate the Sunrise breakfast storefront",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format (json|yaml)")

	root.AddCommand(catalogCmd(a))
	root.AddCommand(pricingCmd(a))
	root.AddCommand(ordersCmd(a))
	root.AddCommand(reportsCmd(a))
	root.AddCommand(outboxCmd(a))
	root.AddCommand(paymentsCmd(a))
	root.AddCommand(migrateCmd(a))
	return root
}

func main() {
	_ = godotenv.Load()

	a := newApp()
	defer a.close()

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.close()
		os.Exit(1)
	}
}
