package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "jenkins-gateway",
		Short: "Jenkins tool gateway",
		Long:  "jenkins-gateway exposes Jenkins build operations as remote tools over stdio and HTTP.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Env vars may also be set externally; a missing .env is fine.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newServeHTTPCmd(&configPath))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jenkins-gateway %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
