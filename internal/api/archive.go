package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/JaimeStill/erisa/pkg/handlers"
	"github.com/JaimeStill/erisa/pkg/routes"
	"github.com/JaimeStill/erisa/pkg/storage"
)

// archiveHandler exposes the source files archived by load_claims. Keys are
// confined to the archive prefix.
type archiveHandler struct {
	store       storage.System
	logger      *slog.Logger
	prefix      string
	maxListSize int32
}

func newArchiveHandler(
	store storage.System,
	logger *slog.Logger,
	prefix string,
	maxListSize int32,
) *archiveHandler {
	return &archiveHandler{
		store:       store,
		logger:      logger.With("handler", "archive"),
		prefix:      strings.Trim(prefix, "/") + "/",
		maxListSize: maxListSize,
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/imports/archive",
		Routes: []routes.Route{
			routes.Get("", h.list),
			routes.Get("/download/{key...}", h.download),
			routes.Get("/{key...}", h.find),
		},
	}
}

func (h *archiveHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxResults, err := storage.ParseMaxResults(q.Get("max_results"), h.maxListSize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.store.List(
		r.Context(),
		h.prefix+strings.TrimPrefix(q.Get("prefix"), "/"),
		q.Get("marker"),
		maxResults,
	)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *archiveHandler) find(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *archiveHandler) download(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}

	result, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)
	if result.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Warn("archive download interrupted", "key", key, "error", err)
	}
}

// key accepts a key either relative to the archive prefix or already carrying it.
func (h *archiveHandler) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, storage.ErrEmptyKey)
		return "", false
	}
	if !strings.HasPrefix(key, h.prefix) {
		key = h.prefix + key
	}
	return key, true
}
