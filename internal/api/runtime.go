package api

import (
	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/infrastructure"
	"github.com/JaimeStill/erisa/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Sessions   *auth.Sessions
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure, sessions *auth.Sessions) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Sessions:   sessions,
		Pagination: cfg.API.Pagination,
	}
}
