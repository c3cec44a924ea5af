package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bluecontainer/openapi-suite-gen/internal/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write an example config file",
	Long:  `Write an example configuration file (default: .openapi-suite-gen.yaml).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ".openapi-suite-gen.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteExampleConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
}
