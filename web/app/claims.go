package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/JaimeStill/erisa/internal/annotations"
	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/pkg/handlers"
	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/web"
)

const maxFormBody = 16 << 10

// FlagReasons are offered as suggestions on the flag form. Any reason is accepted.
var FlagReasons = []string{
	annotations.DefaultFlagReason,
	"Underpayment",
	"Incorrect denial",
	"Missing documentation",
	"Coding error",
}

type claimListPage struct {
	Result   *pagination.PageResult[claims.Claim]
	Query    url.Values
	Statuses []claims.Status
	Insurers []string
	Filtered bool
}

type claimDetailPage struct {
	Record      *claims.Record
	Flags       []annotations.Annotation
	Notes       []annotations.Annotation
	Counts      annotations.Counts
	FlagReasons []string
}

func (a *App) claimList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.PageRequestFromQuery(q, a.Pagination)
	filters := claims.FiltersFromQuery(q)

	result, err := a.Claims.List(r.Context(), page, filters)
	if err != nil {
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	insurers, err := a.Claims.Insurers(r.Context())
	if err != nil {
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	a.render(w, r, http.StatusOK, claimsView, "", claimListPage{
		Result:   result,
		Query:    q,
		Statuses: claims.Statuses,
		Insurers: insurers,
		Filtered: page.Search != nil || filters != (claims.Filters{}),
	})
}

func (a *App) claimDetail(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathInt64(r, "id")
	if err != nil {
		a.renderError(w, r, http.StatusNotFound, claims.ErrNotFound)
		return
	}

	rec, err := a.Claims.Record(r.Context(), id)
	if err != nil {
		if claims.IsNotFound(err) {
			a.renderError(w, r, http.StatusNotFound, err)
			return
		}
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	items, err := a.Annotations.ListByClaim(r.Context(), id)
	if err != nil {
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	page := claimDetailPage{Record: rec, FlagReasons: FlagReasons}
	for _, item := range items {
		switch item.Kind {
		case annotations.KindFlag:
			page.Flags = append(page.Flags, item)
			page.Counts.Flags++
		case annotations.KindNote:
			page.Notes = append(page.Notes, item)
			page.Counts.Notes++
		}
	}

	a.render(w, r, http.StatusOK, claimView, fmt.Sprintf("Claim %d", rec.ID), page)
}

// annotate handles the flag and note forms, then redirects back to the claim.
func (a *App) annotate(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathInt64(r, "id")
	if err != nil {
		a.renderError(w, r, http.StatusNotFound, claims.ErrNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, err)
		return
	}

	author, _ := auth.AuthorID(r)
	cmd := annotations.CreateCommand{
		ClaimID:  id,
		Kind:     annotations.Kind(r.PostForm.Get("kind")),
		Category: r.PostForm.Get("reason"),
		Note:     r.PostForm.Get("note"),
		AuthorID: author,
	}

	back := fmt.Sprintf("/claims/%d", id)

	if _, err := a.Annotations.Create(r.Context(), cmd); err != nil {
		switch status := annotations.MapHTTPStatus(err); {
		case errors.Is(err, annotations.ErrClaimNotFound):
			a.renderError(w, r, http.StatusNotFound, err)
		case status < http.StatusInternalServerError:
			web.SetFlash(w, "error", capitalize(err.Error()))
			a.redirect(w, r, back)
		default:
			a.renderError(w, r, status, err)
		}
		return
	}

	msg := "Note added."
	if cmd.Kind == annotations.KindFlag {
		msg = "Claim flagged for review."
	}
	web.SetFlash(w, "success", msg)
	a.redirect(w, r, back)
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	o, err := a.Dashboard.Overview(r.Context())
	if err != nil {
		a.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	a.render(w, r, http.StatusOK, dashboardView, "", o)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
