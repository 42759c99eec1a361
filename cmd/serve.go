package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/medichat/medichat/internal/api"
	"github.com/medichat/medichat/internal/app"
	"github.com/medichat/medichat/internal/config"
)

// runServe initializes the application and starts the HTTP server.
// A nil args slice means serve was invoked implicitly with no arguments.
func runServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseAddr(args, cfg.Addr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)
	logger.Info("starting medichat", "version", Version)

	a := app.Setup(ctx, cfg, logger)
	defer a.Close()

	serverCfg := api.ServerConfig{
		Logger:        logger,
		Sessions:      a.Sessions,
		Pool:          a.DBPool,
		SessionSecret: []byte(cfg.SessionSecret),
		IsDev:         cfg.Debug,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
	}
	// Leave Engine as a nil interface when the app is degraded so the
	// handlers see the absence, not a typed nil.
	if a.Ready() {
		serverCfg.Engine = a.Engine
	}

	server, err := api.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx, addr)
}
