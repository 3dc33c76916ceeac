package main

import (
	"github.com/spf13/cobra"

	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("askrepo version %s\n", version)
		cmd.Printf("  build time:    %s\n", buildTime)
		cmd.Printf("  sqlite driver: %s (%s build)\n", vectorstore.DriverName, vectorstore.BuildMode)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
