package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
	"reelflow/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var stepFilter string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List workflow sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var steps []session.Step
			if stepFilter != "" {
				step, ok := session.ParseStep(stepFilter)
				if !ok {
					return fmt.Errorf("unknown step %q", stepFilter)
				}
				steps = append(steps, step)
			}

			return ctx.withApp(func(runCtx context.Context, app *api.App) error {
				views, err := app.Sessions(runCtx, steps...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No sessions found.")
					return nil
				}
				fmt.Fprintln(out, sessionTable(views))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stepFilter, "step", "", "Only list sessions at this step")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session>",
		Short: "Show one session in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(runCtx context.Context, app *api.App) error {
				view, err := app.Show(runCtx, id)
				if err != nil {
					return err
				}
				return renderSession(cmd, ctx, view)
			})
		},
	}
}

func newBackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "back <session>",
		Short: "Roll a session back one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				view, moved, err := app.Back(runCtx, id)
				if err != nil {
					return err
				}
				if !moved && !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Step %s cannot go back.\n", view.Step)
				}
				return renderSession(cmd, ctx, view)
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <session>",
		Short: "Clear a session's review flag and re-run automatic steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				view, runErr := app.RetryReview(runCtx, id)
				return renderSessionOrError(cmd, ctx, view, runErr)
			})
		},
	}
}
