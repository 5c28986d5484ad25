package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
)

func newFillersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fillers <session>",
		Short: "List detected filler words for a session at the defiller step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(runCtx context.Context, app *api.App) error {
				result, err := app.FillerWords(runCtx, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if len(result.FillerWords) == 0 {
					fmt.Fprintln(out, "No filler words detected.")
					return nil
				}
				fmt.Fprintln(out, fillerTable(result))
				return nil
			})
		},
	}
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var remove []string
	var clips bool
	var skip bool

	cmd := &cobra.Command{
		Use:   "trim <session>",
		Short: "Apply the reviewed filler-word removals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			removed := splitWords(remove)
			if skip && (len(removed) > 0 || clips) {
				return fmt.Errorf("--skip cannot be combined with --remove or --clips")
			}
			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				var view api.SessionView
				var runErr error
				if skip {
					view, runErr = app.SkipTrim(runCtx, id)
				} else {
					view, runErr = app.ApplyTrim(runCtx, id, removed, clips)
				}
				return renderSessionOrError(cmd, ctx, view, runErr)
			})
		},
	}

	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Filler words to remove (comma-separated or repeated)")
	cmd.Flags().BoolVar(&clips, "clips", false, "Create clips from the trimmed segments")
	cmd.Flags().BoolVar(&skip, "skip", false, "Skip trimming and complete the workflow")
	return cmd
}

func splitWords(values []string) []string {
	words := make([]string, 0, len(values))
	for _, value := range values {
		for _, word := range strings.Split(value, ",") {
			word = strings.TrimSpace(word)
			if word != "" {
				words = append(words, word)
			}
		}
	}
	return words
}
