package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
	"reelflow/internal/session"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <project-id>",
		Short: "Resume a workflow at the step the backend recorded for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := strings.TrimSpace(args[0])
			if projectID == "" {
				return errors.New("project id is required")
			}

			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				result, err := app.Resume(runCtx, projectID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				writeSessionDetail(out, result.Session)
				switch {
				case result.Detection != nil && len(result.Detection.FillerWords) > 0:
					fmt.Fprintln(out, fillerTable(result.Detection))
				case result.Detection != nil:
					fmt.Fprintln(out, "No filler words detected.")
				case len(result.Clips) > 0:
					fmt.Fprintln(out, clipTable(result.Clips))
				}

				// Automatic steps continue without further input.
				step := session.Step(result.Session.Step)
				if session.IsProcessingStep(step) {
					item, err := app.Store().GetByID(runCtx, result.Session.ID)
					if err != nil || item == nil {
						return err
					}
					advErr := app.Manager().Advance(runCtx, item)
					return renderSessionOrError(cmd, ctx, api.FromItem(item), advErr)
				}
				return nil
			})
		},
	}
}
