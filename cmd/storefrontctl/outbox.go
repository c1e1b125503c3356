package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
)

func (a *app) dlq(cmd *cobra.Command) (*outbox.DLQRepository, error) {
	client, err := a.database(cmd.Context())
	if err != nil {
		return nil, err
	}
	return outbox.NewDLQRepository(client.DB()), nil
}

func outboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and requeue dead-lettered order events",
	}

	var reason, eventType string
	var limit int
	list := &cobra.Command{
		Use:   "dlq",
		Short: "List dead-lettered events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := outbox.DLQFilter{Limit: limit}
			if reason != "" {
				r, err := enums.ParseOutboxDLQErrorReason(reason)
				if err != nil {
					return err
				}
				filter.Reason = r
			}
			if eventType != "" {
				et, err := enums.ParseOutboxEventType(eventType)
				if err != nil {
					return err
				}
				filter.EventType = et
			}
			repo, err := a.dlq(cmd)
			if err != nil {
				return err
			}
			rows, err := repo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), rows)
		},
	}
	list.Flags().StringVar(&reason, "reason", "", "filter by error reason")
	list.Flags().StringVar(&eventType, "type", "", "filter by event type")
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	requeue := &cobra.Command{
		Use:   "requeue <event-id>",
		Short: "Reset a dead event so the publisher sends it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q: %w", args[0], err)
			}
			repo, err := a.dlq(cmd)
			if err != nil {
				return err
			}
			if err := repo.Requeue(cmd.Context(), id); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"requeued": id.String()})
		},
	}

	cmd.AddCommand(list, requeue)
	return cmd
}
