package main

import (
	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/internal/checkout"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
)

type attemptRow struct {
	Reference     string `json:"reference" yaml:"reference"`
	Provider      string `json:"provider" yaml:"provider"`
	Status        string `json:"status" yaml:"status"`
	AmountCents   int64  `json:"amountCents" yaml:"amountCents"`
	OrderID       string `json:"orderId,omitempty" yaml:"orderId,omitempty"`
	FailureReason string `json:"failureReason,omitempty" yaml:"failureReason,omitempty"`
	ExpiresAt     string `json:"expiresAt" yaml:"expiresAt"`
}

func paymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect checkout payment attempts",
	}

	var status string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List payment attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var want enums.PaymentAttemptStatus
			if status != "" {
				s, err := enums.ParsePaymentAttemptStatus(status)
				if err != nil {
					return err
				}
				want = s
			}
			client, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			attempts, err := checkout.ListAttempts(cmd.Context(), client.DB(), want, limit)
			if err != nil {
				return err
			}

			rows := make([]attemptRow, 0, len(attempts))
			for _, at := range attempts {
				row := attemptRow{
					Reference:   at.Reference,
					Provider:    at.Provider.String(),
					Status:      at.Status.String(),
					AmountCents: at.AmountCents,
					ExpiresAt:   at.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
				}
				if at.OrderID != nil {
					row.OrderID = at.OrderID.String()
				}
				if at.FailureReason != nil {
					row.FailureReason = *at.FailureReason
				}
				rows = append(rows, row)
			}
			return a.print(cmd.OutOrStdout(), rows)
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status (pending|succeeded|failed|expired)")
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	cmd.AddCommand(list)
	return cmd
}
