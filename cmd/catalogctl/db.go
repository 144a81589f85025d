package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dbCmd groups the catalog schema commands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the catalog database",
	Long:  `Manage the catalog database schema and migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'db' requires a subcommand (migrate|down|status|reset)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
}
