package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	draftsync "github.com/goliatone/go-draftsync"
	"github.com/goliatone/go-draftsync/internal/script"
)

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var resume string
	var jsonOutput bool
	var autosave bool

	cmd := &cobra.Command{
		Use:   "simulate <script>",
		Short: "Run a wizard simulation script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				sim, err := script.Load(args[0])
				if err != nil {
					return err
				}
				resourceID := strings.TrimSpace(resume)
				if resourceID == "" {
					resourceID = sim.ResourceID
				}
				opts, err := a.coordinatorOptions()
				if err != nil {
					return err
				}
				env, err := script.NewEnv(cmd.Context(), a.store, resourceID, opts...)
				if err != nil {
					return err
				}

				if autosave && a.cfg.Autosave.Enabled {
					saver := draftsync.NewAutosaver(env.Coordinator,
						draftsync.WithInterval(a.cfg.Autosave.Interval),
						draftsync.WithTickObserver(func(outcome draftsync.Outcome, err error) {
							a.logger.Debug("autosave tick", "status", outcome.Status, "error", err)
						}),
					)
					if err := saver.Start(cmd.Context()); err != nil {
						return err
					}
					defer saver.Stop()
				}

				var out io.Writer = cmd.OutOrStdout()
				if jsonOutput {
					out = io.Discard
				}
				report, runErr := script.NewRunner(env, out).Run(cmd.Context(), sim)
				closeErr := env.Coordinator.Close(cmd.Context())
				if runErr != nil {
					return errors.Join(runErr, closeErr)
				}
				if closeErr != nil {
					return closeErr
				}
				report.Saves = env.Client.Saves()

				if jsonOutput {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "draft %s: %d saves, %d publishes\n", displayID(report.ResourceID), report.Saves, report.Publishes)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Resume the stored draft with this id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&autosave, "autosave", false, "Run the periodic autosave while the script executes")
	return cmd
}

func displayID(id string) string {
	if id == "" {
		return "<unsaved>"
	}
	return id
}
