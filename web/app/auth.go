package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/users"
	"github.com/JaimeStill/erisa/pkg/web"
)

const missingCredentials = "Please enter both username and password."

type loginPage struct {
	Next     string
	Username string
	Error    string
	SSO      bool
}

type signupPage struct {
	Form  users.RegisterCommand
	Error string
}

func (a *App) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFrom(r.Context()); ok {
		a.redirect(w, r, "/")
		return
	}

	a.render(w, r, http.StatusOK, loginView, "", loginPage{
		Next: r.URL.Query().Get("next"),
		SSO:  a.SSO != nil,
	})
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, err)
		return
	}

	page := loginPage{
		Next:     r.PostForm.Get("next"),
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		SSO:      a.SSO != nil,
	}
	password := r.PostForm.Get("password")

	if page.Username == "" || password == "" {
		page.Error = missingCredentials
		a.render(w, r, http.StatusBadRequest, loginView, "", page)
		return
	}

	u, err := a.Users.Authenticate(r.Context(), page.Username, password)
	if err != nil {
		status := users.MapHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			a.renderError(w, r, status, err)
			return
		}
		page.Error = "Invalid username or password."
		a.render(w, r, status, loginView, "", page)
		return
	}

	a.signIn(w, r, u, fmt.Sprintf("Welcome back, %s!", u.DisplayName()), page.Next)
}

func (a *App) signupPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFrom(r.Context()); ok {
		a.redirect(w, r, "/")
		return
	}
	a.render(w, r, http.StatusOK, signupView, "", signupPage{})
}

func (a *App) signup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, err)
		return
	}

	cmd := users.RegisterCommand{
		Username:        r.PostForm.Get("username"),
		Email:           r.PostForm.Get("email"),
		FirstName:       r.PostForm.Get("first_name"),
		LastName:        r.PostForm.Get("last_name"),
		Password:        r.PostForm.Get("password"),
		PasswordConfirm: r.PostForm.Get("password_confirm"),
	}

	u, err := a.Users.Register(r.Context(), cmd)
	if err != nil {
		status := users.MapHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			a.renderError(w, r, status, err)
			return
		}

		cmd.Password, cmd.PasswordConfirm = "", ""
		a.render(w, r, status, signupView, "", signupPage{
			Form:  cmd,
			Error: capitalize(err.Error()) + ".",
		})
		return
	}

	a.logger.Info("account created", "user", u.ID, "username", u.Username)
	a.signIn(w, r, u, fmt.Sprintf("Welcome to ERISA Recovery, %s!", u.DisplayName()), "")
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.UserFrom(r.Context()); ok {
		web.SetFlash(w, "info", fmt.Sprintf("Goodbye, %s! You have been logged out.", u.DisplayName()))
	}
	a.Sessions.Clear(w)
	a.redirect(w, r, "/login")
}

func (a *App) ssoBegin(w http.ResponseWriter, r *http.Request) {
	a.SSO.Begin(w, r)
}

func (a *App) ssoCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := a.SSO.Complete(w, r)
	if err != nil {
		a.logger.Warn("sso callback rejected", "error", err)
		web.SetFlash(w, "error", "Single sign-on failed. Please try again.")
		a.redirect(w, r, "/login")
		return
	}

	u, err := a.Users.FindOrCreateExternal(r.Context(), identity)
	if err != nil {
		a.renderError(w, r, users.MapHTTPStatus(err), err)
		return
	}

	a.signIn(w, r, u, fmt.Sprintf("Welcome back, %s!", u.DisplayName()), "")
}

// signIn issues the session cookie and redirects to next, which is relative to
// the base path.
func (a *App) signIn(w http.ResponseWriter, r *http.Request, u *users.User, greeting, next string) {
	if err := a.Sessions.Issue(w, u); err != nil {
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	web.SetFlash(w, "success", greeting)
	a.redirect(w, r, auth.SafeRedirect(next, "/"))
}
