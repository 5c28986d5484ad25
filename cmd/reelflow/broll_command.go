package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
	"reelflow/internal/backend"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clips <session>",
		Short: "List B-roll clip suggestions for a session at the broll_config step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(runCtx context.Context, app *api.App) error {
				clips, err := app.ClipSuggestions(runCtx, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, clips)
				}
				out := cmd.OutOrStdout()
				if len(clips) == 0 {
					fmt.Fprintln(out, "No clip suggestions available.")
					return nil
				}
				fmt.Fprintln(out, clipTable(clips))
				return nil
			})
		},
	}
}

func newBrollCommand(ctx *commandContext) *cobra.Command {
	var skip bool
	var selections []string
	var pip bool
	var pipPosition string
	var pipSize string

	cmd := &cobra.Command{
		Use:   "broll <session>",
		Short: "Confirm or skip the B-roll configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}

			if skip {
				return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
					view, runErr := app.SkipBroll(runCtx, id)
					return renderSessionOrError(cmd, ctx, view, runErr)
				})
			}

			parsed, err := parseSelections(selections)
			if err != nil {
				return err
			}
			workflowCfg := backend.WorkflowConfig{
				PipEnabled:      pip,
				PipPosition:     pipPosition,
				PipSize:         pipSize,
				BrollEnabled:    len(parsed) > 0,
				BrollSelections: parsed,
			}
			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				view, runErr := app.ConfirmBroll(runCtx, id, workflowCfg)
				return renderSessionOrError(cmd, ctx, view, runErr)
			})
		},
	}

	cmd.Flags().BoolVar(&skip, "skip", false, "Complete the workflow without B-roll")
	cmd.Flags().StringSliceVar(&selections, "select", nil, "Clip selections as clip-id=asset-id (repeatable)")
	cmd.Flags().BoolVar(&pip, "pip", false, "Enable picture-in-picture")
	cmd.Flags().StringVar(&pipPosition, "pip-position", "", "Picture-in-picture position")
	cmd.Flags().StringVar(&pipSize, "pip-size", "", "Picture-in-picture size")
	return cmd
}

func parseSelections(values []string) ([]backend.BrollSelection, error) {
	selections := make([]backend.BrollSelection, 0, len(values))
	for _, value := range values {
		clipID, assetID, ok := strings.Cut(strings.TrimSpace(value), "=")
		if !ok || clipID == "" || assetID == "" {
			return nil, fmt.Errorf("invalid selection %q, expected clip-id=asset-id", value)
		}
		selections = append(selections, backend.BrollSelection{ClipID: clipID, AssetID: assetID})
	}
	return selections, nil
}
