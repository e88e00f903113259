package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/erisa/internal/annotations"
	"github.com/JaimeStill/erisa/internal/api"
	"github.com/JaimeStill/erisa/internal/auth"
	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/dashboard"
	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/internal/infrastructure"
	"github.com/JaimeStill/erisa/internal/users"
	"github.com/JaimeStill/erisa/pkg/lifecycle"
	"github.com/JaimeStill/erisa/pkg/module"
	"github.com/JaimeStill/erisa/pkg/openapi"
	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/storage"
)

var analyst = &users.User{ID: uuid.New(), Username: "jdoe", Email: "jdoe@example.com", FirstName: "Jane"}

type fakeUsers struct{ users.System }

func (fakeUsers) Find(_ context.Context, id uuid.UUID) (*users.User, error) {
	if id == analyst.ID {
		return analyst, nil
	}
	return nil, users.ErrNotFound
}

type fakeStore struct {
	storage.System
	listPrefix string
	blobs      map[string]string
}

func (f *fakeStore) List(_ context.Context, prefix, _ string, _ int32) (*storage.BlobList, error) {
	f.listPrefix = prefix
	out := &storage.BlobList{}
	for key := range f.blobs {
		if strings.HasPrefix(key, prefix) {
			out.Blobs = append(out.Blobs, storage.BlobMeta{Key: key})
		}
	}
	return out, nil
}

func (f *fakeStore) Find(_ context.Context, key string) (*storage.BlobMeta, error) {
	body, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.BlobMeta{Key: key, ContentType: "text/csv", ContentLength: int64(len(body))}, nil
}

func (f *fakeStore) Download(_ context.Context, key string) (*storage.Blob, error) {
	body, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Blob{
		BlobMeta: storage.BlobMeta{Key: key, ContentType: "text/csv", ContentLength: int64(len(body))},
		Body:     io.NopCloser(strings.NewReader(body)),
	}, nil
}

type fixture struct {
	module   *module.Module
	sessions *auth.Sessions
	store    *fakeStore
}

func testConfig() *config.Config {
	cfg := &config.Config{Version: "1.2.3"}
	cfg.API.BasePath = "/api"
	cfg.API.OpenAPI = openapi.Config{Title: "ERISA Claims API", Description: "test"}
	cfg.Ingest.ArchivePrefix = "imports"
	cfg.Storage.MaxListSize = 50
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &fakeStore{blobs: map[string]string{
		"imports/2024/03/09/run-1/claims.csv": "id|patient_name\n30001|Virginia Rhodes\n",
		"elsewhere/secret.txt":                "nope",
	}}
	sessions := auth.NewSessions(&config.AuthConfig{
		SessionSecret: "0123456789abcdef0123456789abcdef",
		SessionTTL:    "1h",
		CookieName:    "erisa_session",
	})

	runtime := &api.Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: lifecycle.New(),
			Logger:    logger,
			Storage:   store,
		},
		Sessions:   sessions,
		Pagination: pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	}

	// Repositories are never reached by these requests.
	var db *sql.DB
	runs := imports.New(db, logger, runtime.Pagination)
	domain := &api.Domain{
		Claims:      claims.New(db, logger, runtime.Pagination),
		Annotations: annotations.New(db, logger),
		Imports:     runs,
		Dashboard:   dashboard.New(db, runs, logger),
		Users:       fakeUsers{},
	}

	m, err := api.NewModule(cfg, runtime, domain)
	require.NoError(t, err)

	return &fixture{module: m, sessions: sessions, store: store}
}

func (f *fixture) get(t *testing.T, path string, signedIn bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if signedIn {
		issued := httptest.NewRecorder()
		require.NoError(t, f.sessions.Issue(issued, analyst))
		for _, c := range issued.Result().Cookies() {
			req.AddCookie(c)
		}
	}

	rec := httptest.NewRecorder()
	f.module.Serve(rec, req)
	return rec
}

func TestOpenAPIIsPublic(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/openapi.json", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Info    struct{ Version string }   `json:"info"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.1.0", doc.OpenAPI)
	assert.Equal(t, "1.2.3", doc.Info.Version)
	for _, p := range []string{"/claims", "/claims/{id}", "/claims/{id}/flags", "/claims/{id}/notes", "/imports", "/dashboard", "/me"} {
		assert.Contains(t, doc.Paths, p)
	}
}

func TestSpecReferencesResolve(t *testing.T) {
	spec := api.Spec(testConfig())
	data, err := openapi.MarshalJSON(spec)
	require.NoError(t, err)

	for _, ref := range strings.Split(string(data), `"$ref": "#/components/schemas/`)[1:] {
		name, _, _ := strings.Cut(ref, `"`)
		assert.Contains(t, spec.Components.Schemas, name)
	}
}

func TestRoutesRequireSession(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/me", "/api/claims", "/api/claims/30001", "/api/claims/30001/annotations", "/api/imports", "/api/dashboard", "/api/imports/archive"} {
		t.Run(path, func(t *testing.T) {
			rec := f.get(t, path, false)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
		})
	}
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/me", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, analyst.ID, got.ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestArchive(t *testing.T) {
	f := newFixture(t)

	t.Run("list is confined to the archive", func(t *testing.T) {
		rec := f.get(t, "/api/imports/archive?prefix=2024/03", true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "imports/2024/03", f.store.listPrefix)
		assert.Contains(t, rec.Body.String(), "claims.csv")
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("find relative key", func(t *testing.T) {
		rec := f.get(t, "/api/imports/archive/2024/03/09/run-1/claims.csv", true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"key":"imports/2024/03/09/run-1/claims.csv"`)
	})

	t.Run("download", func(t *testing.T) {
		rec := f.get(t, "/api/imports/archive/download/imports/2024/03/09/run-1/claims.csv", true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="claims.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Contains(t, rec.Body.String(), "Virginia Rhodes")
	})

	t.Run("keys outside the archive are not reachable", func(t *testing.T) {
		rec := f.get(t, "/api/imports/archive/elsewhere/secret.txt", true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad max results", func(t *testing.T) {
		rec := f.get(t, "/api/imports/archive?max_results=-1", true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNewRuntimeScopesLogger(t *testing.T) {
	infra := &infrastructure.Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cfg := testConfig()
	cfg.API.Pagination = pagination.Config{DefaultPageSize: 10, MaxPageSize: 50}

	rt := api.NewRuntime(cfg, infra, nil)

	assert.Same(t, infra.Lifecycle, rt.Lifecycle)
	assert.NotSame(t, infra.Logger, rt.Logger)
	assert.Equal(t, 10, rt.Pagination.DefaultPageSize)
}
