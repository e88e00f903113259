package web

import (
	"io/fs"
	"net/http"
)

// StaticHandler serves files from subdir of fsys, stripping urlPrefix from request paths.
func StaticHandler(fsys fs.FS, subdir, urlPrefix string) http.Handler {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		panic("static sub-filesystem: " + err.Error())
	}
	return http.StripPrefix(urlPrefix, http.FileServerFS(sub))
}
