package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report session store diagnostics and step readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(runCtx context.Context, app *api.App) error {
				report, err := app.Health(runCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Store:     %s (schema %s)\n", report.StorePath, report.SchemaVersion)
				fmt.Fprintf(out, "Integrity: %s\n", okLabel(report.IntegrityOK))
				fmt.Fprintf(out, "Sessions:  %d total, %d active, %d processing, %d review, %d failed, %d completed\n",
					report.Sessions.Total,
					report.Sessions.Active,
					report.Sessions.Processing,
					report.Sessions.Review,
					report.Sessions.Failed,
					report.Sessions.Completed,
				)
				for _, step := range report.Steps {
					label := okLabel(step.Ready)
					if step.Detail != "" {
						label += " (" + step.Detail + ")"
					}
					fmt.Fprintf(out, "Step %-12s %s\n", step.Name+":", label)
				}
				return nil
			})
		},
	}
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "not ready"
}
