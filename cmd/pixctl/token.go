package main

import (
	"errors"
	"fmt"
	"time"

	"pixcharge/internal/auth"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API service tokens",
	}

	var ttl time.Duration
	var scope string
	issue := &cobra.Command{
		Use:   "issue [subject]",
		Short: "Issue a bearer token for a calling service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.API.TokenSecret == "" {
				return errors.New("API_TOKEN_SECRET is not set")
			}
			tok, err := auth.GenerateServiceToken(&cfg.API, args[0], scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default API_TOKEN_EXPIRY)")
	issue.Flags().StringVar(&scope, "scope", "", "Optional scope claim")

	cmd.AddCommand(issue)
	return cmd
}
