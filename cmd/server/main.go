package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixcharge/config"
	"pixcharge/internal/bootstrap"
	"pixcharge/internal/broker"
	"pixcharge/internal/database"
	"pixcharge/internal/router"
	"pixcharge/internal/service"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger(cfg, os.Stderr)
	log.Logger = logger

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}

	psp, closePSP, err := bootstrap.NewProvider(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("psp")
	}
	defer closePSP()

	var publishers []service.StatusPublisher
	if cfg.AMQP.URL != "" {
		pub := broker.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err := pub.Connect(); err != nil {
			// Events are best effort; the publisher redials on the next change.
			logger.Warn().Err(err).Msg("amqp unavailable at startup")
		}
		defer pub.Close()
		publishers = append(publishers, pub)
	}

	engine, stopRouter := router.Setup(cfg, db, psp, logger, publishers...)
	defer stopRouter()
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("psp", psp.Name()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("server stopped")
}
