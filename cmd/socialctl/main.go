// Command socialctl is the operator CLI for the social graph service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"socialgraph/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "socialctl",
	Short:         "Operate the social graph service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
