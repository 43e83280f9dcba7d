package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixcharge/config"
	"pixcharge/pkg/pix"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewProvider builds the PSP client selected by PIX_PROVIDER. The returned
// closer releases the Redis client, if one was opened.
func NewProvider(cfg *config.Config, log zerolog.Logger) (pix.Provider, func(), error) {
	noop := func() {}
	if cfg.PSP.Provider == "stub" {
		if cfg.IsProduction() {
			return nil, noop, errors.New("stub provider refused in production")
		}
		log.Warn().Msg("using in-memory stub PSP")
		return pix.NewStubProvider(), noop, nil
	}

	profile, err := pix.LookupProfile(cfg.PSP.Provider, cfg.PSP.BaseURL)
	if err != nil {
		return nil, noop, err
	}
	httpClient, err := pix.NewMTLSClient(pix.TLSConfig{
		CertPath: cfg.PSP.CertPath,
		KeyPath:  cfg.PSP.KeyPath,
		CAPath:   cfg.PSP.CAPath,
		Timeout:  cfg.PSP.Timeout,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("psp transport: %w", err)
	}

	pspLog := log.With().Str("component", "pix").Logger()
	opts := []pix.TokenOption{pix.WithTokenLogger(pspLog)}
	closer := noop
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			// The PSP stays the authority; run without the shared lease.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, token cache disabled")
			_ = rdb.Close()
		} else {
			opts = append(opts, pix.WithTokenCache(pix.NewRedisTokenCache(rdb, profile.Name, cfg.PSP.ClientID)))
			closer = func() { _ = rdb.Close() }
		}
	}

	tokens := pix.NewTokenManager(httpClient, profile, pix.Credentials{
		ClientID:     cfg.PSP.ClientID,
		ClientSecret: cfg.PSP.ClientSecret,
	}, opts...)
	log.Info().Str("psp", profile.Name).Str("base_url", profile.BaseURL).Str("auth_style", profile.AuthStyle.String()).Msg("psp client configured")
	return pix.NewClient(profile, httpClient, tokens, cfg.PSP.ReceiverKey, pspLog), closer, nil
}
