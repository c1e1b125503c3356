package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/internal/orders"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/pagination"
)

func (a *app) orderService(cmd *cobra.Command) (*orders.Service, error) {
	client, err := a.database(cmd.Context())
	if err != nil {
		return nil, err
	}
	return orders.NewService(orders.NewRepository(client.DB()), a.logg)
}

func ordersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and fulfil confirmed orders",
	}

	show := &cobra.Command{
		Use:   "show <order-id|payment-reference>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.orderService(cmd)
			if err != nil {
				return err
			}
			var order *orders.OrderDTO
			if id, parseErr := uuid.Parse(args[0]); parseErr == nil {
				order, err = svc.Get(cmd.Context(), id)
			} else {
				order, err = svc.GetByPaymentReference(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), order)
		},
	}

	var date string
	var limit int
	var cursor string
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders for a delivery date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDay(date)
			if err != nil {
				return err
			}
			svc, err := a.orderService(cmd)
			if err != nil {
				return err
			}
			result, err := svc.ListForDate(cmd.Context(), day, pagination.Params{Limit: limit, Cursor: cursor})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
	list.Flags().StringVar(&date, "date", "", "delivery date (YYYY-MM-DD)")
	list.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "page size")
	list.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")
	_ = list.MarkFlagRequired("date")

	status := &cobra.Command{
		Use:   "status <order-id> <delivered|canceled>",
		Short: "Move a paid order to delivered or canceled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			to, err := enums.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			svc, err := a.orderService(cmd)
			if err != nil {
				return err
			}
			order, err := svc.UpdateStatus(cmd.Context(), id, to)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), order)
		},
	}

	cmd.AddCommand(show, list, status)
	return cmd
}

func parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return day, nil
}
