package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rentsync",
		Short:         "Reconcile rented-device state between the rental API and the marketplace",
		Long:          "rentsync polls the marketplace for order notifications, fulfills them against the device-rental API, and keeps rented-device and listing state consistent between the two services.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newTerminateCmd(app),
	)

	return rootCmd
}
