package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-draftsync/pkg/course"
	"github.com/goliatone/go-draftsync/pkg/state"
	"github.com/goliatone/go-draftsync/schema/openapi"
)

func newSchemaCommand() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the OpenAPI document of the course draft endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openapi.Document(course.Draft{},
				openapi.WithInfo(title, "1.0.0"),
				openapi.WithResource("courses"),
				openapi.WithStatuses(state.StatusDraft, state.StatusPublished, state.StatusArchived),
			)
			if err != nil {
				return err
			}
			return writeJSON(cmd, doc)
		},
	}

	cmd.Flags().StringVar(&title, "title", "Course Draft", "Document title")
	return cmd
}
