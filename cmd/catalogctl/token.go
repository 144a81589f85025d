package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/identity"
	"github.com/zulily/modeldb/pkg/server/middleware"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
	Long:  `Manage API bearer tokens.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'token' requires a subcommand (issue)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// tokenIssueCmd signs a bearer token for a user. Mainly useful for
// bootstrapping and for poking at the API from scripts.
var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for a user",
	Long: `Issue a signed bearer token for a user.

Requires the MODELDB_TOKEN_SIGNING_KEY environment variable.

Example:
  catalogctl token issue --user u1 --username alice
  catalogctl token issue --user ops1 --username ops/adm --admin --ttl 1h`,
	Run: func(cmd *cobra.Command, args []string) {
		signingKey := middleware.SigningKeyFromEnv()
		if len(signingKey) == 0 {
			fmt.Fprintln(os.Stderr, middleware.SigningKeyEnv+" environment variable is required")
			os.Exit(1)
		}

		userID, _ := cmd.Flags().GetString("user")
		username, _ := cmd.Flags().GetString("username")
		workspace, _ := cmd.Flags().GetString("workspace")
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if !cmd.Flags().Changed("ttl") {
			ttl = config.Get().TokenTTL()
		}

		if userID == "" {
			fmt.Fprintln(os.Stderr, "--user is required")
			os.Exit(1)
		}

		auth := middleware.NewTokenAuthenticator(signingKey, nil)
		token, err := auth.IssueToken(&identity.Identity{
			UserID:    userID,
			Username:  username,
			Workspace: workspace,
			Admin:     admin,
		}, ttl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().String("user", "", "Stable user id (token subject)")
	tokenIssueCmd.Flags().String("username", "", "Login name")
	tokenIssueCmd.Flags().String("workspace", "", "Default workspace override")
	tokenIssueCmd.Flags().Bool("admin", false, "Mark the token as a service administrator")
	tokenIssueCmd.Flags().Duration("ttl", 0, "Token time to live (defaults to the configured auth_token_ttl)")
}
