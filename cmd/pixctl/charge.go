package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pixcharge/internal/bootstrap"
	"pixcharge/pkg/pix"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func chargeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charge",
		Short: "Query charges directly at the PSP",
	}
	cmd.AddCommand(chargeDetailCmd(), chargeListCmd())
	return cmd
}

func chargeDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail [txid]",
		Short: "Show the PSP's view of a charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pix.ValidateTxid(args[0]); err != nil {
				return err
			}
			return withProvider(cmd, func(ctx context.Context, psp pix.Provider) error {
				ch, err := psp.DetailCharge(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ch)
			})
		},
	}
}

func chargeListCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List charges created in a UTC window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" {
				start = time.Now().UTC().Add(-24 * time.Hour).Format(pix.DateLayout)
			}
			if end == "" {
				end = time.Now().UTC().Format(pix.DateLayout)
			}
			if _, _, err := pix.ValidateDateRange(start, end); err != nil {
				return err
			}
			return withProvider(cmd, func(ctx context.Context, psp pix.Provider) error {
				list, err := psp.ListCharges(ctx, start, end)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVar(&start, "inicio", "", "Window start, YYYY-MM-DD-HH-MM-SS (default 24h ago)")
	cmd.Flags().StringVar(&end, "fim", "", "Window end, YYYY-MM-DD-HH-MM-SS (default now)")
	return cmd
}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the webhook registered at the PSP",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "register [url]",
		Short: "Register the notification URL for the receiving key (default PUBLIC_URL/api/v1/webhooks/pix)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			target := cfg.Server.PublicURL + "/api/v1/webhooks/pix"
			if len(args) == 1 {
				target = args[0]
			} else if cfg.Server.PublicURL == "" {
				return fmt.Errorf("pass a url or set PUBLIC_URL")
			}
			return withProvider(cmd, func(ctx context.Context, psp pix.Provider) error {
				if err := psp.CreateWebhook(ctx, target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "webhook registered: %s\n", target)
				return nil
			})
		},
	})
	return cmd
}

func withProvider(cmd *cobra.Command, fn func(context.Context, pix.Provider) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	psp, closer, err := bootstrap.NewProvider(cfg, log)
	if err != nil {
		return err
	}
	defer closer()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return fn(ctx, psp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
