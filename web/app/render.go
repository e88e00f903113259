package app

import (
	"net/http"

	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/pkg/web"
)

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, view web.ViewDef, title string, data any) {
	vd := web.ViewData{
		Title: title,
		Flash: web.PopFlash(w, r),
		Data:  data,
	}
	if u, ok := auth.UserFrom(r.Context()); ok {
		vd.User = u
	}

	if err := a.views.Render(w, status, view, vd); err != nil {
		a.logger.Error("render failed", "view", view.Template, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError shows the error page. Server errors are logged and their
// detail is withheld from the page.
func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := http.StatusText(status)
	if status >= http.StatusInternalServerError {
		a.logger.Error("page failed", "path", r.URL.Path, "status", status, "error", err)
	} else if err != nil {
		msg = err.Error()
	}

	a.render(w, r, status, errorView, "", web.ErrorPage{Status: status, Message: msg})
}

// redirect sends a 303 to a path under the base path.
func (a *App) redirect(w http.ResponseWriter, r *http.Request, p string) {
	http.Redirect(w, r, a.path(p), http.StatusSeeOther)
}
