package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/erisa/internal/api"
	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/infrastructure"
	"github.com/JaimeStill/erisa/pkg/module"
	"github.com/JaimeStill/erisa/web/app"
)

// Modules holds the mounted modules. API and App share one domain.
type Modules struct {
	API *module.Module
	App *module.Module
}

// NewModules builds the domain once and mounts it behind the JSON API and the
// web pages.
func NewModules(ctx context.Context, infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	sessions := auth.NewSessions(&cfg.Auth)
	if cfg.Auth.EphemeralSecret {
		infra.Logger.Warn("no session secret configured; sessions will not survive a restart")
	}

	runtime := api.NewRuntime(cfg, infra, sessions)
	domain := api.NewDomain(runtime)

	apiModule, err := api.NewModule(cfg, runtime, domain)
	if err != nil {
		return nil, err
	}

	deps := app.Deps{
		Claims:      domain.Claims,
		Annotations: domain.Annotations,
		Dashboard:   domain.Dashboard,
		Users:       domain.Users,
		Sessions:    sessions,
		Logger:      infra.Logger,
		Pagination:  cfg.App.Pagination,
	}

	if cfg.Auth.OIDC.Enabled() {
		provider, err := auth.NewProvider(ctx, &cfg.Auth)
		if err != nil {
			return nil, err
		}
		deps.SSO = provider
		infra.Logger.Info("single sign-on enabled", "issuer", cfg.Auth.OIDC.Issuer)
	}

	appModule, err := app.NewModule(cfg.App.BasePath, deps)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
		App: appModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API, m.App)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	router.Redirect("GET /{$}", cfg.App.BasePath+"/")

	return router
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
