package main

import (
	"github.com/spf13/cobra"
)

// flagBindings maps persistent flags to config keys.
var flagBindings = map[string]string{
	"store":      "store.driver",
	"db":         "store.path",
	"log-level":  "log.level",
	"log-format": "log.format",
	"engine":     "rules.engine",
	"metrics":    "metrics.enabled",
	"trace":      "tracing.enabled",
}

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "draftsync",
		Short:         "Course draft synchronization tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	ctx := newCommandContext(rootCmd, &configFlag)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "schema" {
			return nil
		}
		_, err := ctx.ensureConfig()
		return err
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.String("store", "", "Store driver (memory, sqlite)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	flags.String("engine", "", "Rule engine (expr, cel, js)")
	flags.Bool("metrics", false, "Print Prometheus metrics after the command")
	flags.Bool("trace", false, "Export spans to stderr")

	rootCmd.AddCommand(newSimulateCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newSchemaCommand())

	return rootCmd
}
