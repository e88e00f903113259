package annotations

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/erisa/pkg/handlers"
	"github.com/JaimeStill/erisa/pkg/routes"
)

const maxBody = 16 << 10

// Handler provides HTTP endpoints for annotation operations.
type Handler struct {
	sys    System
	logger *slog.Logger
	author AuthorFunc
}

// FlagRequest is the JSON body for creating a flag.
type FlagRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// NoteRequest is the JSON body for creating a note.
type NoteRequest struct {
	Content string `json:"content"`
}

// ListResponse holds a claim's annotations and counts.
type ListResponse struct {
	Annotations []Annotation `json:"annotations"`
	Counts      Counts       `json:"counts"`
}

// NewHandler creates a Handler. author resolves the requesting user.
func NewHandler(sys System, logger *slog.Logger, author AuthorFunc) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "annotations"),
		author: author,
	}
}

// Routes returns the route group definition for annotation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/claims/{id}",
		Routes: []routes.Route{
			routes.Get("/annotations", h.List),
			routes.Post("/flags", h.Flag),
			routes.Post("/notes", h.Note),
		},
	}
}

// List returns every annotation on a claim, newest first, with counts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}

	items, err := h.sys.ListByClaim(r.Context(), claimID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	counts, err := h.sys.Counts(r.Context(), claimID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ListResponse{Annotations: items, Counts: counts})
}

// Flag creates a flag with an optional reason and note.
func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if err := handlers.DecodeJSON(w, r, &req, maxBody); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	h.create(w, r, CreateCommand{Kind: KindFlag, Category: req.Reason, Note: req.Note})
}

// Note creates a note. Content is required.
func (h *Handler) Note(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := handlers.DecodeJSON(w, r, &req, maxBody); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	h.create(w, r, CreateCommand{Kind: KindNote, Note: req.Content})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, cmd CreateCommand) {
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}

	author, ok := h.author(r)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	cmd.ClaimID = claimID
	cmd.AuthorID = author

	a, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	counts, err := h.sys.Counts(r.Context(), claimID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, Result{Success: true, Annotation: *a, Counts: counts})
}

func (h *Handler) claimID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handlers.PathInt64(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidClaimID, err))
		return 0, false
	}
	return id, true
}
