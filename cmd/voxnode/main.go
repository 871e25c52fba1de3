package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/voxctl/internal/admin"
	"github.com/danmuck/voxctl/internal/advertise"
	"github.com/danmuck/voxctl/internal/config"
	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/registry"
)

func main() {
	path := flag.String("config", "node.toml", "node config path")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "voxnode: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.LoadNodeConfig(path)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("voxnode").With().Str("node", cfg.Name).Logger()

	m, err := cfg.Jurisdiction(jurisdiction.WithLogger(logger))
	if err != nil {
		return err
	}
	m.LogDetails(logger)

	// peers would publish here too; locally the node hears its own advertisements
	reg := registry.New(logger)
	adv, err := advertise.New(
		advertise.Config{Sender: cfg.ID, Interval: cfg.AdvertiseInterval},
		m,
		reg,
		logger,
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adminErr := make(chan error, 1)
	if cfg.AdminAddr != "" {
		srv := admin.New(cfg.Name, adv, reg, logger)
		go func() {
			adminErr <- srv.ListenAndServe(ctx, cfg.AdminAddr)
		}()
	}

	logger.Info().
		Stringer("id", cfg.ID).
		Stringer("jurisdiction", m).
		Dur("interval", cfg.AdvertiseInterval).
		Msg("voxnode ready")

	advErr := make(chan error, 1)
	go func() {
		advErr <- adv.Run(ctx)
	}()

	select {
	case err := <-adminErr:
		stop()
		<-advErr
		return err
	case err := <-advErr:
		return err
	}
}
