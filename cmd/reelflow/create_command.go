package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var title string
	var link string

	cmd := &cobra.Command{
		Use:   "create [files...]",
		Short: "Start a new editing workflow and run it until input is needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && strings.TrimSpace(link) == "" {
				return errors.New("provide at least one media file or --link")
			}

			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				view, runErr := app.CreateWorkflow(runCtx, api.CreateWorkflowRequest{
					Title:     title,
					Mode:      mode,
					Files:     args,
					SourceURL: link,
				})
				return renderSessionOrError(cmd, ctx, view, runErr)
			})
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "refine", "Entry mode: refine or ai-talk")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title (derived from file names when empty)")
	cmd.Flags().StringVar(&link, "link", "", "Source video URL instead of local files")
	return cmd
}

func renderSession(cmd *cobra.Command, ctx *commandContext, view api.SessionView) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, view)
	}
	writeSessionDetail(cmd.OutOrStdout(), view)
	return nil
}

func renderSessionOrError(cmd *cobra.Command, ctx *commandContext, view api.SessionView, runErr error) error {
	if view.ID != 0 {
		if err := renderSession(cmd, ctx, view); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("workflow stopped: %w", runErr)
	}
	return nil
}
