// WalletScore admission service - ledger-side dual-signature verification
package main

import (
	"context"
	"os"

	"github.com/chainproof/walletscore/internal/admission"
	"github.com/chainproof/walletscore/internal/config"
	"github.com/chainproof/walletscore/internal/logging"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting walletscore admission service",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.LoadAdmission()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded", "env", cfg.Env)

	srv, err := admission.NewServer(cfg, admission.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
