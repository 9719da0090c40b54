package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-draftsync/pkg/state"
)

type recordLister interface {
	List(ctx context.Context, status string, limit int) ([]state.Record, error)
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				lister, ok := a.store.(recordLister)
				if !ok {
					return fmt.Errorf("list: store driver %q cannot list drafts", a.cfg.Store.Driver)
				}
				records, err := lister.List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.ResourceID,
						record.Status,
						strconv.FormatInt(record.Version, 10),
						record.UpdatedAt.UTC().Format(time.RFC3339),
					})
				}
				return writeTable(cmd, []string{"ID", "STATUS", "VERSION", "UPDATED"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only list drafts with this status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of drafts")
	return cmd
}
