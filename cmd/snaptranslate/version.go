package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/api"
	"github.com/jackzampolin/snaptranslate/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Output(version.Get())
	},
}
