// Package web renders server-side pages from html/template sets over an fs.FS
// and serves embedded static assets.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

// ViewDef names a page template and its default title.
type ViewDef struct {
	Template string
	Title    string
}

// ViewData is passed to every page template.
// BasePath enables portable URLs in templates via {{ .BasePath }}.
type ViewData struct {
	Title    string
	BasePath string
	User     any
	Flash    *Flash
	Data     any
}

// TemplateSet holds one parsed template tree per view, each a clone of the layouts.
type TemplateSet struct {
	views    map[string]*template.Template
	layout   string
	basePath string
}

// NewTemplateSet parses the layouts matching layoutGlob, then clones them for each
// view under viewSubdir. funcs is installed before parsing. Parsing fails fast at startup.
func NewTemplateSet(fsys fs.FS, layoutGlob, layout, viewSubdir, basePath string, funcs template.FuncMap, views []ViewDef) (*TemplateSet, error) {
	layouts, err := template.New("").Funcs(funcs).ParseFS(fsys, layoutGlob)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	viewFS, err := fs.Sub(fsys, viewSubdir)
	if err != nil {
		return nil, err
	}

	parsed := make(map[string]*template.Template, len(views))
	for _, v := range views {
		t, err := layouts.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layouts for %s: %w", v.Template, err)
		}
		if _, err := t.ParseFS(viewFS, v.Template); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", v.Template, err)
		}
		parsed[v.Template] = t
	}

	return &TemplateSet{
		views:    parsed,
		layout:   layout,
		basePath: basePath,
	}, nil
}

// BasePath returns the URL prefix pages are served under.
func (ts *TemplateSet) BasePath() string {
	return ts.basePath
}

// Render executes view inside the layout and writes it with status.
// The page is rendered to a buffer first so a template error never produces a
// partially written 200 response.
func (ts *TemplateSet) Render(w http.ResponseWriter, status int, view ViewDef, data ViewData) error {
	t, ok := ts.views[view.Template]
	if !ok {
		return fmt.Errorf("template not found: %s", view.Template)
	}

	if data.Title == "" {
		data.Title = view.Title
	}
	data.BasePath = ts.basePath

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, ts.layout, data); err != nil {
		return fmt.Errorf("render %s: %w", view.Template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// ErrorPage is the data for error views.
type ErrorPage struct {
	Status  int
	Message string
}
