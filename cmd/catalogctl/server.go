package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/db"
	"github.com/zulily/modeldb/pkg/logging"
	"github.com/zulily/modeldb/pkg/server"
	"github.com/zulily/modeldb/pkg/server/endpoints"
	"github.com/zulily/modeldb/pkg/server/middleware"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8080
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the catalog API server",
	Long: `Run the catalog API server.

To run the server requires the environment variables DATABASE_URL and
MODELDB_TOKEN_SIGNING_KEY.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		signingKey := middleware.SigningKeyFromEnv()
		if len(signingKey) == 0 {
			fmt.Fprintln(os.Stderr, middleware.SigningKeyEnv+" environment variable is required")
			os.Exit(1)
		}

		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		logging.Init()
		defer func() { _ = logging.Sync() }()

		cfg := config.Get()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		conn, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Println("Unable to connect to DB:", err)
			os.Exit(1)
		}

		// Hot-reload configuration on file changes.
		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer cancelWatch()
		go func() { _ = config.Watch(watchCtx) }()

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewFromDB(conn, cfg, signingKey, host, port)

		endpoints.RegisterAll(s)

		log.Printf("Running server at http://%s:%s...\n", host, port)
		log.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
