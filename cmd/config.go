package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manages the config file",
	}

	configInitCmd = &cobra.Command{
		Use:   "init [DIR]",
		Short: "Writes the default config into DIR without overwriting existing files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return safeWriteFromEmbeddedFS("configs", dir)
		},
	}
)

func init() {
	configCmd.AddCommand(configInitCmd)
}
