package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	rootCmd := &cobra.Command{
		Use:           "deleterr",
		Short:         "Propagate Jellyfin deletions to Sonarr and Radarr",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newCheckCommand())

	return rootCmd
}
