package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	draftsync "github.com/goliatone/go-draftsync"
	"github.com/goliatone/go-draftsync/pkg/course"
	"github.com/goliatone/go-draftsync/pkg/state"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display a stored draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				record, err := loadRecord(cmd, a.store, args[0])
				if err != nil {
					return err
				}
				switch strings.ToLower(strings.TrimSpace(format)) {
				case "", "json":
					return writeJSON(cmd, record)
				case "yaml":
					return writeYAML(cmd, record)
				case "draft":
					draft, err := course.DecodeDraft(record)
					if err != nil {
						return err
					}
					return writeJSON(cmd, draft)
				case "fields":
					fields := draftsync.DescribeFields(record.Sections)
					rows := make([][]string, 0, len(fields))
					for _, field := range fields {
						rows = append(rows, []string{field.Path, field.Kind, field.Items})
					}
					return writeTable(cmd, []string{"PATH", "KIND", "ITEMS"}, rows, nil)
				default:
					return fmt.Errorf("show: unsupported format %q", format)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml, draft, fields)")
	return cmd
}

func loadRecord(cmd *cobra.Command, loader state.Loader, id string) (state.Record, error) {
	id = strings.TrimSpace(id)
	record, ok, err := loader.Load(cmd.Context(), id)
	if err != nil {
		return state.Record{}, err
	}
	if !ok {
		return state.Record{}, fmt.Errorf("draft %s: %w", id, state.ErrNotFound)
	}
	return record, nil
}
