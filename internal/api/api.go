// Package api assembles the JSON API module: the domain systems, session
// resolution, and route registration under the API base path.
package api

import (
	"net/http"

	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/pkg/middleware"
	"github.com/JaimeStill/erisa/pkg/module"
)

// NewModule creates the API module over an assembled domain.
func NewModule(cfg *config.Config, runtime *Runtime, domain *Domain) (*module.Module, error) {
	spec, err := specJSON(cfg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime, spec)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))

	return m, nil
}
