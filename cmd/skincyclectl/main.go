// Command skincyclectl inspects and edits a profile's cycle directly against the configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Iviolo/SkinCycling-Coach/internal/config"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/storage"
)

func main() {
	cfg := config.Load()
	root := newRootCmd(cfg, func(ctx context.Context) (*domain.Service, func(), error) {
		return openService(ctx, cfg)
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openService(ctx context.Context, cfg config.Config) (*domain.Service, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	opts, err := storage.ServiceOptions(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	cleanup := func() {
		store.Close()
		_ = logger.Sync()
	}
	logger.Debug("store opened", zap.String("driver", cfg.StorageDriver))
	return domain.NewService(store.Repository, opts...), cleanup, nil
}
