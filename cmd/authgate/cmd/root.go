package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "authgate authenticates services and users in front of an API",
	Long: `authgate verifies challenge-response service tokens, identity-provider
client-credentials tokens, basic service credentials and OIDC sessions.
Configuration is read from AUTHGATE_* environment variables.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
