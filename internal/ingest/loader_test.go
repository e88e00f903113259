package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/internal/ingest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
}

func run(t *testing.T, l *ingest.Loader, opts ingest.Options) *ingest.Summary {
	t.Helper()
	s, err := l.Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func TestLoaderAppend(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	first := run(t, l, ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("details.csv")},
		Mode:  ingest.ModeAppend,
	})
	assert.Equal(t, ingest.Counts{Created: 3}, first.Claims)
	assert.Equal(t, ingest.Counts{Created: 3}, first.Details)
	assert.False(t, first.HasFailures())
	assert.Equal(t, []string{"claims.csv", "details.csv"}, first.Files)

	writes := store.writes

	second := run(t, l, ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("details.csv")},
		Mode:  ingest.ModeAppend,
	})
	assert.Equal(t, ingest.Counts{Skipped: 3}, second.Claims)
	assert.Equal(t, ingest.Counts{Skipped: 3}, second.Details)
	assert.Equal(t, writes, store.writes, "re-upload must not write")
}

func TestLoaderAppendUpdateExisting(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})

	s := run(t, l, ingest.Options{
		Paths:          []string{fixture("claims_updated.csv")},
		Mode:           ingest.ModeAppend,
		UpdateExisting: true,
	})
	assert.Equal(t, ingest.Counts{Created: 1, Updated: 1, Skipped: 2}, s.Claims)

	c, err := store.Find(context.Background(), 30002)
	require.NoError(t, err)
	assert.Equal(t, "2450.5", c.PaidAmount.String())
}

func TestLoaderAppendWithoutUpdateKeepsStored(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	s := run(t, l, ingest.Options{Paths: []string{fixture("claims_updated.csv")}, Mode: ingest.ModeAppend})

	assert.Equal(t, ingest.Counts{Created: 1, Skipped: 3}, s.Claims)

	c, err := store.Find(context.Background(), 30002)
	require.NoError(t, err)
	assert.Equal(t, "1980.25", c.PaidAmount.String())
}

func TestLoaderOverwrite(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	s := run(t, l, ingest.Options{Paths: []string{fixture("claims_updated.csv")}, Mode: ingest.ModeOverwrite})

	assert.Equal(t, ingest.Counts{Created: 1, Updated: 1, Skipped: 2}, s.Claims)
	assert.Contains(t, render(t, s), "Mode: OVERWRITE\n")
}

func TestLoaderOverwriteDetailReason(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	run(t, l, ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("details.csv")},
		Mode:  ingest.ModeAppend,
	})

	path := filepath.Join(t.TempDir(), "details.csv")
	require.NoError(t, os.WriteFile(path, []byte("claim_id|cpt_code|denial_reason\n30001|99204|Duplicate claim\n30001|82947|Not medically necessary\n"), 0o600))

	s := run(t, l, ingest.Options{Paths: []string{path}, Mode: ingest.ModeOverwrite})
	assert.Equal(t, ingest.Counts{Updated: 1, Skipped: 1}, s.Details)

	d, err := store.FindDetail(context.Background(), 30001, "99204")
	require.NoError(t, err)
	require.NotNil(t, d.DenialReason)
	assert.Equal(t, "Duplicate claim", *d.DenialReason)
}

func TestLoaderClearIsIdempotent(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)
	opts := ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("details.csv")},
		Mode:  ingest.ModeClear,
	}

	first := run(t, l, opts)
	require.NotNil(t, first.Cleared)
	assert.Equal(t, claims.ClearResult{}, *first.Cleared)
	claimsA, detailsA := store.snapshot()

	second := run(t, l, opts)
	require.NotNil(t, second.Cleared)
	assert.Equal(t, claims.ClearResult{Claims: 3, Details: 3}, *second.Cleared)
	assert.Equal(t, ingest.Counts{Created: 3}, second.Claims)
	claimsB, detailsB := store.snapshot()

	if diff := cmp.Diff(claimsA, claimsB); diff != "" {
		t.Errorf("claims differ between clear runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(detailsA, detailsB); diff != "" {
		t.Errorf("details differ between clear runs (-first +second):\n%s", diff)
	}
}

func TestLoaderJSONMatchesCSV(t *testing.T) {
	csvStore := newMemStore()
	run(t, ingest.NewLoader(csvStore, discard), ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("details.csv")},
		Mode:  ingest.ModeAppend,
	})

	jsonStore := newMemStore()
	s := run(t, ingest.NewLoader(jsonStore, discard), ingest.Options{
		Paths: []string{fixture("claims.json")},
		Mode:  ingest.ModeAppend,
	})
	assert.Equal(t, ingest.Counts{Created: 3}, s.Details)

	csvClaims, csvDetails := csvStore.snapshot()
	jsonClaims, jsonDetails := jsonStore.snapshot()

	if diff := cmp.Diff(csvClaims, jsonClaims); diff != "" {
		t.Errorf("claims differ (-csv +json):\n%s", diff)
	}
	if diff := cmp.Diff(csvDetails, jsonDetails); diff != "" {
		t.Errorf("details differ (-csv +json):\n%s", diff)
	}
}

func TestLoaderSkipsBadRows(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	s := run(t, l, ingest.Options{Paths: []string{fixture("claims_bad.csv")}, Mode: ingest.ModeAppend})

	assert.Equal(t, ingest.Counts{Created: 2, Failed: 1}, s.Claims)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, 2, s.Errors[0].Row)
	assert.Equal(t, "claims_bad.csv", s.Errors[0].File)
	assert.True(t, s.HasFailures())

	cs, _ := store.snapshot()
	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	assert.Equal(t, []int64{30001, 30003}, ids)
}

func TestLoaderFatalErrorsWriteNothing(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "mystery.csv")
	require.NoError(t, os.WriteFile(unknown, []byte("foo|bar\n1|2\n"), 0o600))

	tests := []struct {
		name string
		opts ingest.Options
		want error
	}{
		{
			name: "no paths",
			opts: ingest.Options{Mode: ingest.ModeAppend},
			want: ingest.ErrNoPaths,
		},
		{
			name: "missing file after a good one",
			opts: ingest.Options{
				Paths: []string{fixture("claims.csv"), filepath.Join(dir, "absent.csv")},
				Mode:  ingest.ModeClear,
			},
			want: ingest.ErrUnreadable,
		},
		{
			name: "unrecognized header",
			opts: ingest.Options{Paths: []string{fixture("claims.csv"), unknown}, Mode: ingest.ModeAppend},
			want: ingest.ErrUnrecognizedHeader,
		},
		{
			name: "undetectable format",
			opts: ingest.Options{Paths: []string{filepath.Join(dir, "claims.xlsx")}, Mode: ingest.ModeAppend},
			want: ingest.ErrUnknownFormat,
		},
		{
			name: "bad mode",
			opts: ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: "replace"},
			want: ingest.ErrUnknownMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			require.NoError(t, store.CreateClaim(context.Background(), claims.Claim{ID: 1, PatientName: "Seed"}))
			writes := store.writes

			s, err := ingest.NewLoader(store, discard).Run(context.Background(), tt.opts)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, s)
			assert.Equal(t, writes, store.writes)

			_, err = store.Find(context.Background(), 1)
			assert.NoError(t, err, "seed claim must survive")
		})
	}
}

func TestLoaderFileTooLarge(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard, ingest.WithMaxFileSize(16))

	_, err := l.Run(context.Background(), ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	assert.ErrorIs(t, err, ingest.ErrFileTooLarge)
	assert.Zero(t, store.writes)
}

func TestLoaderDetailWithoutClaim(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	path := filepath.Join(t.TempDir(), "details.csv")
	require.NoError(t, os.WriteFile(path, []byte("30009|99204,82947|Not covered\n"), 0o600))

	s := run(t, l, ingest.Options{Paths: []string{path}, Mode: ingest.ModeAppend})

	assert.Equal(t, ingest.Counts{Failed: 2}, s.Details)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "claim 30009 not found for detail record", s.Errors[0].Reason)
	assert.Zero(t, store.writes)
}

func TestLoaderDuplicateWithinRun(t *testing.T) {
	dir := t.TempDir()
	repeatClaims := filepath.Join(dir, "repeat_claims.csv")
	repeatDetails := filepath.Join(dir, "repeat_details.csv")
	require.NoError(t, os.WriteFile(repeatClaims, []byte("30001|Someone Else|700.00|0.00|Denied|United Healthcare|2022-12-19\n"), 0o600))
	require.NoError(t, os.WriteFile(repeatDetails, []byte("30001|99204|Duplicate claim\n"), 0o600))

	tests := []struct {
		name string
		opts ingest.Options
	}{
		{"append", ingest.Options{Mode: ingest.ModeAppend}},
		{"append update existing", ingest.Options{Mode: ingest.ModeAppend, UpdateExisting: true}},
		{"overwrite", ingest.Options{Mode: ingest.ModeOverwrite}},
		{"clear", ingest.Options{Mode: ingest.ModeClear}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			l := ingest.NewLoader(store, discard)

			opts := tt.opts
			opts.Paths = []string{fixture("claims.csv"), repeatClaims, fixture("details.csv"), repeatDetails}
			s := run(t, l, opts)

			assert.Equal(t, ingest.Counts{Created: 3, Skipped: 1}, s.Claims)
			assert.Equal(t, ingest.Counts{Created: 3, Skipped: 1}, s.Details)

			c, err := store.Find(context.Background(), 30001)
			require.NoError(t, err)
			assert.Equal(t, "Virginia Rhodes", c.PatientName)

			d, err := store.FindDetail(context.Background(), 30001, "99204")
			require.NoError(t, err)
			require.NotNil(t, d.DenialReason)
			assert.Equal(t, "Not medically necessary", *d.DenialReason)
		})
	}

	t.Run("repeats across files in clear mode", func(t *testing.T) {
		store := newMemStore()
		l := ingest.NewLoader(store, discard)

		s := run(t, l, ingest.Options{
			Paths: []string{fixture("claims.csv"), fixture("claims_headerless.csv")},
			Mode:  ingest.ModeClear,
		})
		assert.Equal(t, ingest.Counts{Created: 3, Skipped: 2}, s.Claims)
	})
}

func TestLoaderUnrecognizedRecords(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	s := run(t, l, ingest.Options{Paths: []string{fixture("records.json")}, Mode: ingest.ModeAppend})

	assert.Equal(t, ingest.Counts{Created: 1}, s.Claims)
	assert.Equal(t, ingest.Counts{Created: 2}, s.Details)
	assert.Equal(t, 1, s.Unrecognized)
	assert.Equal(t, 4, s.Total())
}

func TestLoaderCancelled(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := l.Run(ctx, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, s)
	assert.Zero(t, s.Claims.Total())
}

type fakeArchive struct {
	enabled bool
	fail    bool
	keys    []string
	types   []string
}

func (f *fakeArchive) Enabled() bool { return f.enabled }

func (f *fakeArchive) Upload(_ context.Context, key string, r io.Reader, contentType string) error {
	if f.fail {
		return errors.New("container unavailable")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	return nil
}

func TestLoaderArchive(t *testing.T) {
	archive := &fakeArchive{enabled: true}
	l := ingest.NewLoader(newMemStore(), discard,
		ingest.WithArchive(archive, "imports"),
		ingest.WithClock(fixedClock),
	)

	s := run(t, l, ingest.Options{
		Paths: []string{fixture("claims.csv"), fixture("claims.json")},
		Mode:  ingest.ModeClear,
	})

	prefix := "imports/2024/03/09/" + s.RunID.String() + "/"
	assert.Equal(t, []string{prefix + "claims.csv", prefix + "claims.json"}, archive.keys)
	assert.Equal(t, archive.keys, s.ArchiveKeys)
	require.Len(t, archive.types, 2)
	assert.True(t, strings.HasPrefix(archive.types[0], "text/"), archive.types[0])
	assert.True(t, strings.HasPrefix(archive.types[1], "application/json"), archive.types[1])
	assert.Empty(t, s.Warnings)
}

func TestLoaderArchiveDisabled(t *testing.T) {
	archive := &fakeArchive{}
	l := ingest.NewLoader(newMemStore(), discard, ingest.WithArchive(archive, "imports"))

	s := run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	assert.Empty(t, archive.keys)
	assert.Empty(t, s.ArchiveKeys)
}

func TestLoaderArchiveFailureWarns(t *testing.T) {
	store := newMemStore()
	l := ingest.NewLoader(store, discard, ingest.WithArchive(&fakeArchive{enabled: true, fail: true}, "imports"))

	s := run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})

	assert.Equal(t, ingest.Counts{Created: 3}, s.Claims)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "archive of claims.csv failed")
	assert.False(t, s.HasFailures())
}

type fakeRecorder struct {
	runs []imports.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, r imports.Run) (*imports.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.runs = append(f.runs, r)
	return &r, nil
}

func TestLoaderRecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	l := ingest.NewLoader(newMemStore(), discard, ingest.WithRecorder(rec), ingest.WithClock(fixedClock))

	s := run(t, l, ingest.Options{
		Paths:          []string{fixture("claims.csv"), fixture("claims.json")},
		Mode:           ingest.ModeAppend,
		UpdateExisting: true,
	})

	require.Len(t, rec.runs, 1)
	r := rec.runs[0]
	assert.Equal(t, s.RunID, r.ID)
	assert.Equal(t, "csv,json", r.Format)
	assert.Equal(t, "append", r.Mode)
	assert.True(t, r.UpdateExisting)
	assert.Equal(t, []string{"claims.csv", "claims.json"}, r.Files)
	assert.Equal(t, imports.Counts{Created: 3, Skipped: 3}, r.Claims)
	assert.Equal(t, fixedClock(), r.StartedAt)
}

func TestLoaderRecordFailureWarns(t *testing.T) {
	l := ingest.NewLoader(newMemStore(), discard, ingest.WithRecorder(&fakeRecorder{err: errors.New("db down")}))

	s := run(t, l, ingest.Options{Paths: []string{fixture("claims.csv")}, Mode: ingest.ModeAppend})
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "import history not recorded")
}

func TestOptionsStrategy(t *testing.T) {
	tests := []struct {
		mode   ingest.Mode
		update bool
		want   ingest.Strategy
	}{
		{ingest.ModeAppend, false, ingest.Skip},
		{ingest.ModeAppend, true, ingest.Update},
		{ingest.ModeOverwrite, false, ingest.Update},
		{ingest.ModeClear, true, ingest.Skip},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			opts := ingest.Options{Mode: tt.mode, UpdateExisting: tt.update}
			assert.Equal(t, tt.want, opts.Strategy())
		})
	}
}

func TestParseModeAndFormat(t *testing.T) {
	m, err := ingest.ParseMode(" Overwrite ")
	require.NoError(t, err)
	assert.Equal(t, ingest.ModeOverwrite, m)

	_, err = ingest.ParseMode("merge")
	assert.ErrorIs(t, err, ingest.ErrUnknownMode)

	f, err := ingest.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, ingest.Format(""), f)

	f, err = ingest.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, ingest.FormatJSON, f)

	_, err = ingest.ParseFormat("xml")
	assert.ErrorIs(t, err, ingest.ErrUnknownFormat)
}
