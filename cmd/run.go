package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation loops until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.log.Info().Msg("starting reconciler")
			err := app.reconciler.Run(ctx)
			if errors.Is(err, context.Canceled) {
				app.log.Info().Msg("reconciler stopped")
				return nil
			}
			return err
		},
	}
}
