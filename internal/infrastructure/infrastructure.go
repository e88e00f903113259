// Package infrastructure assembles the dependencies shared by the server and
// the load_claims command: lifecycle coordination, logging, the database pool,
// and the optional import archive.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/pkg/database"
	"github.com/JaimeStill/erisa/pkg/lifecycle"
	"github.com/JaimeStill/erisa/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	level     slog.Level
}

// WithLogOutput sends log records to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithLogLevel sets the minimum log level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config, opts ...Option) (*Infrastructure, error) {
	o := options{logOutput: os.Stderr, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	lc := lifecycle.New()
	logger := NewLogger(o.logOutput, o.level)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
	}, nil
}

// NewLogger returns the text logger used across the service.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Start registers the database and storage hooks with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
