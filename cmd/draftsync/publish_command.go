package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-draftsync/internal/script"
	"github.com/goliatone/go-draftsync/pkg/state"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a stored draft after checking the publish rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				opts, err := a.coordinatorOptions()
				if err != nil {
					return err
				}
				env, err := script.NewEnv(cmd.Context(), a.store, args[0], opts...)
				if err != nil {
					return err
				}
				defer env.Coordinator.Close(cmd.Context())

				result, err := env.Coordinator.Publish(cmd.Context(), status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "draft %s: %s", env.Session.ResourceID(), status)
				if result.Message != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (%s)", result.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", state.StatusPublished, "Target status (draft, published, archived)")
	return cmd
}
