// Package app serves the server-rendered claim review pages: the claim list,
// claim detail with annotations, the dashboard, and sign-in.
package app

import (
	"context"
	"embed"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/erisa/internal/annotations"
	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/dashboard"
	"github.com/JaimeStill/erisa/internal/users"
	"github.com/JaimeStill/erisa/pkg/middleware"
	"github.com/JaimeStill/erisa/pkg/module"
	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/routes"
	"github.com/JaimeStill/erisa/pkg/web"
)

//go:embed templates static
var content embed.FS

var (
	claimsView    = web.ViewDef{Template: "claims.html", Title: "Claims"}
	claimView     = web.ViewDef{Template: "claim.html", Title: "Claim"}
	dashboardView = web.ViewDef{Template: "dashboard.html", Title: "Dashboard"}
	loginView     = web.ViewDef{Template: "login.html", Title: "Sign in"}
	signupView    = web.ViewDef{Template: "signup.html", Title: "Create account"}
	errorView     = web.ViewDef{Template: "error.html", Title: "Error"}
)

var views = []web.ViewDef{claimsView, claimView, dashboardView, loginView, signupView, errorView}

// ClaimReader is the claim query surface used by the pages.
type ClaimReader interface {
	List(ctx context.Context, page pagination.PageRequest, filters claims.Filters) (*pagination.PageResult[claims.Claim], error)
	Record(ctx context.Context, id int64) (*claims.Record, error)
	Insurers(ctx context.Context) ([]string, error)
}

// Annotator creates and lists claim annotations.
type Annotator interface {
	Create(ctx context.Context, cmd annotations.CreateCommand) (*annotations.Annotation, error)
	ListByClaim(ctx context.Context, claimID int64) ([]annotations.Annotation, error)
}

// Overviewer produces the dashboard aggregates.
type Overviewer interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
}

// Accounts registers, authenticates, and loads users.
type Accounts interface {
	auth.UserFinder
	Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error)
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
	FindOrCreateExternal(ctx context.Context, identity users.ExternalIdentity) (*users.User, error)
}

// SSO runs an external sign-in flow. *auth.Provider satisfies it.
type SSO interface {
	Begin(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request) (users.ExternalIdentity, error)
}

// Deps are the systems behind the pages. SSO is nil when single sign-on is
// not configured.
type Deps struct {
	Claims      ClaimReader
	Annotations Annotator
	Dashboard   Overviewer
	Users       Accounts
	Sessions    *auth.Sessions
	SSO         SSO
	Logger      *slog.Logger
	Pagination  pagination.Config
}

// App holds the page handlers.
type App struct {
	Deps
	views    *web.TemplateSet
	basePath string
	logger   *slog.Logger
}

// New parses the embedded templates. Template errors surface here, at startup.
func New(basePath string, deps Deps) (*App, error) {
	ts, err := web.NewTemplateSet(content, "templates/layouts/*.html", "app", "templates/views", basePath, web.Funcs(), views)
	if err != nil {
		return nil, err
	}

	return &App{
		Deps:     deps,
		views:    ts,
		basePath: basePath,
		logger:   deps.Logger.With("module", "app"),
	}, nil
}

// NewModule mounts the pages under basePath.
func NewModule(basePath string, deps Deps) (*module.Module, error) {
	a, err := New(basePath, deps)
	if err != nil {
		return nil, err
	}

	m := module.New(basePath, a.Handler())
	m.Use(middleware.Logger(deps.Logger))
	m.Use(middleware.Recover(deps.Logger))
	return m, nil
}

// Handler returns the page router with session resolution applied. Paths are
// relative to the base path.
func (a *App) Handler() http.Handler {
	router := web.NewRouter()
	router.Handle("GET /static/", web.StaticHandler(content, "static", "/static/"))
	routes.Register(router.Mux(), a.routes()...)
	router.SetFallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.renderError(w, r, http.StatusNotFound, nil)
	}))

	return auth.Session(a.Sessions, a.Users, a.logger)(router)
}

func (a *App) routes() []routes.Group {
	public := routes.Group{
		Routes: []routes.Route{
			routes.Get("/login", a.loginPage),
			routes.Post("/login", a.login),
			routes.Get("/signup", a.signupPage),
			routes.Post("/signup", a.signup),
			routes.Post("/logout", a.logout),
		},
	}

	if a.SSO != nil {
		public.Children = append(public.Children, routes.Group{
			Prefix: "/auth/oidc",
			Routes: []routes.Route{
				routes.Get("/login", a.ssoBegin),
				routes.Get("/callback", a.ssoCallback),
			},
		})
	}

	protected := routes.Group{
		Middleware: []routes.Middleware{auth.RequirePage(a.path("/login"))},
		Routes: []routes.Route{
			routes.Get("/{$}", a.claimList),
			routes.Get("/claims/{id}", a.claimDetail),
			routes.Post("/claims/{id}/annotations", a.annotate),
			routes.Get("/dashboard", a.dashboard),
		},
	}

	return []routes.Group{public, protected}
}

// path prefixes p with the base path for redirects and links.
func (a *App) path(p string) string {
	return a.basePath + p
}
