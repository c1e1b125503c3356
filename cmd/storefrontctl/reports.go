package main

import (
	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/internal/reporting"
	"github.com/angelmondragon/sunrise-backend/pkg/bigquery"
)

func reportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Query order facts in BigQuery",
	}

	var from, to string
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Daily sales by delivery date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseDay(from)
			if err != nil {
				return err
			}
			end, err := parseDay(to)
			if err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, err := bigquery.NewClient(cmd.Context(), cfg.GCP, cfg.BigQuery, a.logg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			report, err := reporting.NewSalesReport(client, cfg.BigQuery.OrderFactsTable)
			if err != nil {
				return err
			}
			rows, err := report.Daily(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), rows)
		},
	}
	daily.Flags().StringVar(&from, "from", "", "first delivery date (YYYY-MM-DD)")
	daily.Flags().StringVar(&to, "to", "", "last delivery date (YYYY-MM-DD)")
	_ = daily.MarkFlagRequired("from")
	_ = daily.MarkFlagRequired("to")

	cmd.AddCommand(daily)
	return cmd
}
