package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carlmn/rentsync/internal/domain"
)

func newTerminateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <device-id>",
		Short: "End a rental early, refunding the unused portion of the newest payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !domain.ValidDeviceID(args[0]) {
				return fmt.Errorf("invalid device id %q: expected 24 lowercase hex characters", args[0])
			}

			if err := app.reconciler.Bootstrap(cmd.Context()); err != nil {
				return err
			}

			return app.reconciler.Terminate(cmd.Context(), domain.DeviceID(args[0]))
		},
	}
}
