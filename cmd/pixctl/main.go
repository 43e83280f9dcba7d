package main

import (
	"fmt"
	"os"

	"pixcharge/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pixctl",
		Short:         "Operate the Pix charge service: inspect PSP charges, register webhooks, issue API tokens",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(chargeCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
