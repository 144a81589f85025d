package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "ModelDB catalog server command line interface",
	Long: `catalogctl manages the ModelDB metadata catalog: run the API
server, migrate the database schema, and inspect configuration.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
