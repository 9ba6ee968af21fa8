// Command helpdeskctl runs operator tasks against the configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Operator output goes to stdout; keep the logger quiet.
	cfg.Logger.Level = "error"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	open := func(ctx context.Context) (repository.Store, error) {
		return persistence.OpenStore(ctx, cfg, logger)
	}
	root := newRootCmd(cfg, open, logger)
	if err := root.Execute(); err != nil {
		logger.Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}
