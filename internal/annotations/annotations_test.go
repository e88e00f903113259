package annotations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/annotations"
	"github.com/JaimeStill/erisa/pkg/routes"
)

var testUser = uuid.MustParse("6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f")

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		cmd          annotations.CreateCommand
		wantErr      error
		wantCategory string
	}{
		{
			name:         "flag default reason",
			cmd:          annotations.CreateCommand{Kind: annotations.KindFlag, Category: "  ", AuthorID: testUser},
			wantCategory: annotations.DefaultFlagReason,
		},
		{
			name:         "flag keeps reason",
			cmd:          annotations.CreateCommand{Kind: annotations.KindFlag, Category: " Underpaid ", AuthorID: testUser},
			wantCategory: "Underpaid",
		},
		{
			name:    "empty note",
			cmd:     annotations.CreateCommand{Kind: annotations.KindNote, Note: " \n ", AuthorID: testUser},
			wantErr: annotations.ErrEmptyNote,
		},
		{
			name:         "note drops category",
			cmd:          annotations.CreateCommand{Kind: annotations.KindNote, Note: "Call insurer", Category: "x", AuthorID: testUser},
			wantCategory: "",
		},
		{
			name:    "unknown kind",
			cmd:     annotations.CreateCommand{Kind: "comment", AuthorID: testUser},
			wantErr: annotations.ErrInvalidKind,
		},
		{
			name:    "no author",
			cmd:     annotations.CreateCommand{Kind: annotations.KindFlag},
			wantErr: annotations.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			err := cmd.Normalize()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Category != tt.wantCategory {
				t.Errorf("category: got %q, want %q", cmd.Category, tt.wantCategory)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{annotations.ErrClaimNotFound, http.StatusNotFound},
		{annotations.ErrDuplicate, http.StatusConflict},
		{annotations.ErrEmptyNote, http.StatusBadRequest},
		{annotations.ErrInvalidClaimID, http.StatusBadRequest},
		{annotations.ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := annotations.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, got, tt.want)
		}
	}
}

type mockSystem struct {
	annotations.System
	created []annotations.CreateCommand
	items   []annotations.Annotation
	err     error
}

func (m *mockSystem) Create(_ context.Context, cmd annotations.CreateCommand) (*annotations.Annotation, error) {
	if err := cmd.Normalize(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, cmd)

	a := annotations.Annotation{
		ID:        uuid.New(),
		ClaimID:   cmd.ClaimID,
		Kind:      cmd.Kind,
		Note:      cmd.Note,
		AuthorID:  cmd.AuthorID,
		Author:    "analyst",
		CreatedAt: time.Now(),
	}
	if cmd.Kind == annotations.KindFlag {
		a.Category = &cmd.Category
	}
	m.items = append([]annotations.Annotation{a}, m.items...)
	return &a, nil
}

func (m *mockSystem) ListByClaim(context.Context, int64) ([]annotations.Annotation, error) {
	return m.items, nil
}

func (m *mockSystem) Counts(context.Context, int64) (annotations.Counts, error) {
	var c annotations.Counts
	for _, a := range m.items {
		if a.Kind == annotations.KindFlag {
			c.Flags++
		} else {
			c.Notes++
		}
	}
	return c, nil
}

func setupMux(sys annotations.System, authed bool) *http.ServeMux {
	author := func(*http.Request) (uuid.UUID, bool) {
		return testUser, authed
	}
	h := annotations.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)), author)
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func post(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFlag(t *testing.T) {
	sys := &mockSystem{}
	rec := post(setupMux(sys, true), "/claims/30001/flags", `{"reason": ""}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	var res annotations.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Counts.Flags != 1 {
		t.Errorf("result: %+v", res)
	}
	if res.Annotation.Category == nil || *res.Annotation.Category != annotations.DefaultFlagReason {
		t.Errorf("category: got %v", res.Annotation.Category)
	}
	if sys.created[0].ClaimID != 30001 || sys.created[0].AuthorID != testUser {
		t.Errorf("command: %+v", sys.created[0])
	}
}

func TestHandlerNote(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		authed     bool
		sysErr     error
		wantStatus int
	}{
		{"created", `{"content": "Appeal filed"}`, true, nil, http.StatusCreated},
		{"empty content", `{"content": "   "}`, true, nil, http.StatusBadRequest},
		{"malformed body", `{"content":`, true, nil, http.StatusBadRequest},
		{"anonymous", `{"content": "x"}`, false, nil, http.StatusUnauthorized},
		{"missing claim", `{"content": "x"}`, true, annotations.ErrClaimNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{err: tt.sysErr}
			rec := post(setupMux(sys, tt.authed), "/claims/30001/notes", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestHandlerDuplicateFlag(t *testing.T) {
	sys := &mockSystem{err: annotations.ErrDuplicate}
	rec := post(setupMux(sys, true), "/claims/30001/flags", `{"reason": "Underpaid"}`)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandlerList(t *testing.T) {
	sys := &mockSystem{}
	mux := setupMux(sys, true)
	post(mux, "/claims/7/flags", `{"reason": "Underpaid"}`)
	post(mux, "/claims/7/notes", `{"content": "Called payer"}`)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/7/annotations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var res annotations.ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Annotations) != 2 || res.Counts.Flags != 1 || res.Counts.Notes != 1 {
		t.Errorf("response: %+v", res)
	}
	if res.Annotations[0].Kind != annotations.KindNote {
		t.Error("annotations should be newest first")
	}
}

func TestHandlerBadClaimID(t *testing.T) {
	rec := httptest.NewRecorder()
	setupMux(&mockSystem{}, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/x/annotations", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}
