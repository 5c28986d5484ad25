package main

import (
	"context"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
	"reelflow/internal/backend"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var fillers bool
	var breaths bool
	var broll bool

	cmd := &cobra.Command{
		Use:   "analyze <session>",
		Short: "Pick analyses for a refine session and start processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRunApp(func(runCtx context.Context, app *api.App) error {
				view, runErr := app.StartAnalysis(runCtx, id, backend.AnalysisOptions{
					DetectFillers: fillers,
					DetectBreaths: breaths,
					EnableBroll:   broll,
				})
				return renderSessionOrError(cmd, ctx, view, runErr)
			})
		},
	}

	cmd.Flags().BoolVar(&fillers, "fillers", true, "Detect filler words")
	cmd.Flags().BoolVar(&breaths, "breaths", false, "Detect breath sounds")
	cmd.Flags().BoolVar(&broll, "broll", false, "Enable B-roll suggestions")
	return cmd
}
