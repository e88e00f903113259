package cli

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/internal/infrastructure"
	"github.com/JaimeStill/erisa/internal/ingest"
)

// Open returns the Opener used in production. It starts the shared
// infrastructure, waits for the database (and archive container when
// archiving is enabled), and wires a Loader to the claims repository.
func Open(cfg *config.Config) Opener {
	return func(ctx context.Context, verbose bool) (Runner, func(), error) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		infra, err := infrastructure.New(cfg, infrastructure.WithLogLevel(level))
		if err != nil {
			return nil, nil, err
		}

		release := func() {
			if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
				infra.Logger.Error("shutdown failed", "error", err)
			}
		}

		if err := infra.Start(); err != nil {
			release()
			return nil, nil, err
		}
		if err := infra.Lifecycle.WaitForStartup(); err != nil {
			release()
			return nil, nil, err
		}

		db := infra.Database.Connection()
		store := claims.New(db, infra.Logger, cfg.API.Pagination)
		history := imports.New(db, infra.Logger, cfg.API.Pagination)

		opts := []ingest.Option{
			ingest.WithRecorder(history),
			ingest.WithMaxFileSize(cfg.Ingest.MaxFileSizeBytes()),
		}
		if cfg.Ingest.Archive {
			if !infra.Storage.Enabled() {
				infra.Logger.Warn("ingest archive requested but storage is disabled")
			}
			opts = append(opts, ingest.WithArchive(infra.Storage, cfg.Ingest.ArchivePrefix))
		}

		infra.Logger.Debug("loader ready",
			"archive", cfg.Ingest.Archive && infra.Storage.Enabled(),
			"max_file_size", cfg.Ingest.MaxFileSize,
		)

		return ingest.NewLoader(store, infra.Logger, opts...), release, nil
	}
}
