package api

import (
	"net/http"

	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/pkg/handlers"
	"github.com/JaimeStill/erisa/pkg/openapi"
	"github.com/JaimeStill/erisa/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
	spec []byte,
) {
	archive := newArchiveHandler(runtime.Storage, runtime.Logger, cfg.Ingest.ArchivePrefix, cfg.Storage.MaxListSize)

	routes.Register(
		mux,
		routes.Group{
			Routes: []routes.Route{
				routes.Get("/openapi.json", openapi.ServeSpec(spec)),
			},
		},
		routes.Group{
			Middleware: []routes.Middleware{
				auth.Session(runtime.Sessions, domain.Users, runtime.Logger),
				auth.RequireAPI(runtime.Logger),
			},
			Routes: []routes.Route{
				routes.Get("/me", currentUser),
			},
			Children: []routes.Group{
				domain.Claims.Handler().Routes(),
				domain.Annotations.Handler(auth.AuthorID).Routes(),
				domain.Imports.Handler().Routes(),
				domain.Dashboard.Handler().Routes(),
				archive.routes(),
			},
		},
	)
}

func currentUser(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	handlers.RespondJSON(w, http.StatusOK, u)
}
