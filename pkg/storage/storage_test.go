package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/erisa/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestConfigFinalize(t *testing.T) {
	t.Run("disabled needs no connection string", func(t *testing.T) {
		cfg := storage.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.ContainerName != "claim-imports" {
			t.Errorf("ContainerName = %q, want claim-imports", cfg.ContainerName)
		}
		if cfg.MaxListSize != 50 {
			t.Errorf("MaxListSize = %d, want 50", cfg.MaxListSize)
		}
	})

	t.Run("enabled requires connection string", func(t *testing.T) {
		cfg := storage.Config{Enabled: true}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "connection_string") {
			t.Errorf("err = %v, want connection_string error", err)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_ENABLED", "true")
		t.Setenv("TEST_STORAGE_CONN", azuriteConnString)
		t.Setenv("TEST_STORAGE_MAX", "99999")

		cfg := storage.Config{}
		err := cfg.Finalize(&storage.Env{
			Enabled:          "TEST_STORAGE_ENABLED",
			ConnectionString: "TEST_STORAGE_CONN",
			MaxListSize:      "TEST_STORAGE_MAX",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if !cfg.Enabled {
			t.Error("Enabled = false, want true")
		}
		if cfg.MaxListSize != storage.MaxListCap {
			t.Errorf("MaxListSize = %d, want cap %d", cfg.MaxListSize, storage.MaxListCap)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		sys, err := storage.New(&storage.Config{
			Enabled:          true,
			ContainerName:    "claim-imports",
			ConnectionString: azuriteConnString,
		}, slog.Default())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if !sys.Enabled() {
			t.Error("Enabled() = false")
		}
	})

	t.Run("invalid connection string", func(t *testing.T) {
		_, err := storage.New(&storage.Config{
			Enabled:          true,
			ContainerName:    "claim-imports",
			ConnectionString: "not-a-connection-string",
		}, slog.Default())
		if err == nil {
			t.Fatal("expected error for invalid connection string")
		}
	})
}

func TestDisabledSystem(t *testing.T) {
	sys, err := storage.New(&storage.Config{}, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if sys.Enabled() {
		t.Fatal("Enabled() = true for disabled config")
	}

	ctx := context.Background()
	if err := sys.Upload(ctx, "imports/a.csv", strings.NewReader("x"), "text/csv"); !errors.Is(err, storage.ErrDisabled) {
		t.Errorf("Upload() = %v, want ErrDisabled", err)
	}
	if _, err := sys.Download(ctx, "imports/a.csv"); !errors.Is(err, storage.ErrDisabled) {
		t.Errorf("Download() = %v, want ErrDisabled", err)
	}
	if _, err := sys.List(ctx, "imports/", "", 10); !errors.Is(err, storage.ErrDisabled) {
		t.Errorf("List() = %v, want ErrDisabled", err)
	}
}

func TestKeyValidation(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		Enabled:          true,
		ContainerName:    "claim-imports",
		ConnectionString: azuriteConnString,
	}, slog.Default())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := sys.Find(ctx, ""); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("Find(\"\") = %v, want ErrEmptyKey", err)
	}
	if _, err := sys.Download(ctx, "imports/../secrets"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("Download(traversal) = %v, want ErrInvalidKey", err)
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"", 50, false},
		{"10", 10, false},
		{"100000", storage.MaxListCap, false},
		{"0", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.in, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{storage.ErrInvalidLimit, http.StatusBadRequest},
		{storage.ErrDisabled, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
