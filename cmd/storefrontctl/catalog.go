package main

import (
	"github.com/spf13/cobra"

	product "github.com/angelmondragon/sunrise-backend/internal/products"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
)

func (a *app) productService(cmd *cobra.Command) (*product.Service, error) {
	client, err := a.database(cmd.Context())
	if err != nil {
		return nil, err
	}
	return product.NewService(product.NewRepository(client.DB()), a.logg)
}

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the breakfast catalog",
	}

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Upsert catalog products from a YAML seed file",
		Long: `Upsert catalog products by slug. Without --file the built-in
breakfast menu is loaded. Running it twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seedFile, err := loadSeed(file)
			if err != nil {
				return err
			}
			svc, err := a.productService(cmd)
			if err != nil {
				return err
			}
			n, err := svc.Seed(cmd.Context(), seedFile)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]int{"seeded": n})
		},
	}
	seed.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to the built-in menu)")

	var limit int
	var cursor string
	list := &cobra.Command{
		Use:   "list",
		Short: "List available products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.productService(cmd)
			if err != nil {
				return err
			}
			result, err := svc.List(cmd.Context(), pagination.Params{Limit: limit, Cursor: cursor})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
	list.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "page size")
	list.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")

	cmd.AddCommand(seed, list)
	return cmd
}

func loadSeed(path string) (*product.SeedFile, error) {
	if path == "" {
		return product.DefaultSeed()
	}
	return product.LoadSeedFile(path)
}
