package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/imports"
)

// Store is the claim persistence used by a run. Each write is its own
// transaction. Lookups of absent records return errors matched by claims.IsNotFound.
type Store interface {
	Find(ctx context.Context, id int64) (*claims.Claim, error)
	CreateClaim(ctx context.Context, c claims.Claim) error
	UpdateClaim(ctx context.Context, c claims.Claim) error
	FindDetail(ctx context.Context, claimID int64, cptCode string) (*claims.Detail, error)
	CreateDetail(ctx context.Context, d claims.Detail) error
	UpdateDetail(ctx context.Context, d claims.Detail) error
	Clear(ctx context.Context) (claims.ClearResult, error)
}

// Archiver keeps a copy of each source file.
type Archiver interface {
	Enabled() bool
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Recorder stores the run in import history.
type Recorder interface {
	Record(ctx context.Context, run imports.Run) (*imports.Run, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithArchive uploads each source file under prefix before any write.
func WithArchive(a Archiver, prefix string) Option {
	return func(l *Loader) {
		l.archive = a
		l.archivePrefix = prefix
	}
}

// WithRecorder records every completed run.
func WithRecorder(r Recorder) Option {
	return func(l *Loader) { l.recorder = r }
}

// WithMaxFileSize rejects source files larger than n bytes. Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(l *Loader) { l.maxFileSize = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// Loader reconciles parsed files against a Store.
type Loader struct {
	store         Store
	logger        *slog.Logger
	archive       Archiver
	archivePrefix string
	recorder      Recorder
	maxFileSize   int64
	now           func() time.Time
}

// NewLoader creates a Loader writing to store.
func NewLoader(store Store, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		store:  store,
		logger: logger.With("system", "ingest"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// applied holds the keys written or skipped so far in one run. A key seen
// again is a repeat and is never reconciled twice.
type applied struct {
	claims  map[int64]bool
	details map[detailKey]bool
}

type detailKey struct {
	claimID int64
	cptCode string
}

func newApplied() *applied {
	return &applied{claims: map[int64]bool{}, details: map[detailKey]bool{}}
}

type source struct {
	path  string
	data  []byte
	batch *Batch
}

// Run reads and parses every file, then applies claims before details.
// A returned error with a nil Summary means nothing was written.
func (l *Loader) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Summary{
		RunID:          uuid.New(),
		Mode:           opts.Mode,
		UpdateExisting: opts.UpdateExisting,
		Errors:         []RowError{},
		Warnings:       []string{},
		ArchiveKeys:    []string{},
		StartedAt:      l.now().UTC(),
	}

	sources := make([]source, 0, len(opts.Paths))
	for _, p := range opts.Paths {
		src, err := l.read(p, opts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
		s.Files = append(s.Files, filepath.Base(p))
		if !slices.Contains(s.Formats, src.batch.Format) {
			s.Formats = append(s.Formats, src.batch.Format)
		}
		l.logger.Info("file parsed",
			"file", src.path,
			"format", src.batch.Format,
			"claims", len(src.batch.Claims),
			"details", len(src.batch.Details),
			"rejected", len(src.batch.Errors),
		)
	}

	l.archiveSources(ctx, s, sources)

	if opts.Mode == ModeClear {
		res, err := l.store.Clear(ctx)
		if err != nil {
			return nil, fmt.Errorf("clear claims: %w", err)
		}
		s.Cleared = &res
	}

	strategy := opts.Strategy()
	seen := newApplied()

	for _, src := range sources {
		for _, e := range src.batch.Errors {
			l.logger.Warn("row rejected", "file", e.File, "row", e.Row, "error", e.Reason)
			s.reject(e, 1)
		}
	}

	for _, src := range sources {
		for _, rec := range src.batch.Claims {
			if err := ctx.Err(); err != nil {
				return l.finish(s), err
			}
			l.applyClaim(ctx, s, seen, src.batch.File, rec, strategy)
		}
	}

	for _, src := range sources {
		for _, rec := range src.batch.Details {
			if err := ctx.Err(); err != nil {
				return l.finish(s), err
			}
			l.applyDetail(ctx, s, seen, src.batch.File, rec, strategy)
		}
	}

	s = l.finish(s)
	l.record(ctx, s)
	return s, nil
}

func (l *Loader) finish(s *Summary) *Summary {
	s.CompletedAt = l.now().UTC()
	l.logger.Info("import complete",
		"run", s.RunID,
		"claims_created", s.Claims.Created,
		"claims_updated", s.Claims.Updated,
		"claims_skipped", s.Claims.Skipped,
		"details_created", s.Details.Created,
		"details_updated", s.Details.Updated,
		"details_skipped", s.Details.Skipped,
		"failed", len(s.Errors),
	)
	return s
}

func (l *Loader) read(p string, opts Options) (source, error) {
	format, err := opts.FormatFor(p)
	if err != nil {
		return source{}, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return source{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if info.IsDir() {
		return source{}, fmt.Errorf("%w: %s is a directory", ErrUnreadable, p)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return source{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, p, info.Size())
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return source{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	batch, err := Parse(bytes.NewReader(data), format, filepath.Base(p))
	if err != nil {
		return source{}, err
	}
	return source{path: p, data: data, batch: batch}, nil
}

// archiveSources uploads raw files. Failures become warnings; the import proceeds.
func (l *Loader) archiveSources(ctx context.Context, s *Summary, sources []source) {
	if l.archive == nil || !l.archive.Enabled() {
		return
	}

	day := s.StartedAt.Format("2006/01/02")
	for _, src := range sources {
		key := path.Join(l.archivePrefix, day, s.RunID.String(), src.batch.File)
		contentType := mimetype.Detect(src.data).String()

		if err := l.archive.Upload(ctx, key, bytes.NewReader(src.data), contentType); err != nil {
			l.logger.Warn("archive upload failed", "file", src.path, "key", key, "error", err)
			s.warn("archive of %s failed: %v", src.batch.File, err)
			continue
		}
		s.ArchiveKeys = append(s.ArchiveKeys, key)
		l.logger.Info("source archived", "file", src.path, "key", key, "content_type", contentType)
	}
}

func (l *Loader) applyClaim(ctx context.Context, s *Summary, seen *applied, file string, rec ClaimRecord, strategy Strategy) {
	if seen.claims[rec.Claim.ID] {
		l.logger.Debug("repeated claim skipped", "file", file, "row", rec.Row, "claim", rec.Claim.ID)
		tally(&s.Claims, skipped)
		return
	}

	o, err := l.reconcileClaim(ctx, rec.Claim, strategy)
	if err != nil {
		e := RowError{File: file, Row: rec.Row, Kind: KindClaim, Reason: fmt.Sprintf("claim %d: %v", rec.Claim.ID, err)}
		l.logger.Error("claim write failed", "file", file, "row", rec.Row, "claim", rec.Claim.ID, "error", err)
		s.reject(e, 1)
		return
	}
	seen.claims[rec.Claim.ID] = true
	tally(&s.Claims, o)
}

// reconcileClaim creates an absent claim. An existing one is skipped under
// the Skip strategy, and under Update is rewritten only when a field differs.
func (l *Loader) reconcileClaim(ctx context.Context, c claims.Claim, strategy Strategy) (outcome, error) {
	existing, err := l.store.Find(ctx, c.ID)
	switch {
	case claims.IsNotFound(err):
		if err := l.store.CreateClaim(ctx, c); err != nil {
			if errors.Is(err, claims.ErrDuplicate) {
				return skipped, nil
			}
			return failed, err
		}
		return created, nil
	case err != nil:
		return failed, err
	case strategy == Skip, existing.Equal(c):
		return skipped, nil
	}

	if err := l.store.UpdateClaim(ctx, c); err != nil {
		return failed, err
	}
	return updated, nil
}

func (l *Loader) applyDetail(ctx context.Context, s *Summary, seen *applied, file string, rec DetailRecord, strategy Strategy) {
	if _, err := l.store.Find(ctx, rec.ClaimID); err != nil {
		reason := fmt.Sprintf("claim %d: %v", rec.ClaimID, err)
		if claims.IsNotFound(err) {
			reason = fmt.Sprintf("claim %d not found for detail record", rec.ClaimID)
		}
		l.logger.Warn("detail rejected", "file", file, "row", rec.Row, "claim", rec.ClaimID, "error", reason)
		s.reject(RowError{File: file, Row: rec.Row, Kind: KindDetail, Reason: reason}, len(rec.CPTCodes))
		return
	}

	for _, code := range rec.CPTCodes {
		key := detailKey{claimID: rec.ClaimID, cptCode: code}
		if seen.details[key] {
			tally(&s.Details, skipped)
			continue
		}

		d := claims.Detail{ClaimID: rec.ClaimID, CPTCode: code, DenialReason: rec.DenialReason}

		o, err := l.reconcileDetail(ctx, d, strategy)
		if err != nil {
			l.logger.Error("detail write failed", "file", file, "row", rec.Row, "claim", rec.ClaimID, "cpt", code, "error", err)
			s.reject(RowError{
				File:   file,
				Row:    rec.Row,
				Kind:   KindDetail,
				Reason: fmt.Sprintf("claim %d cpt %s: %v", rec.ClaimID, code, err),
			}, 1)
			continue
		}
		seen.details[key] = true
		tally(&s.Details, o)
	}
}

func (l *Loader) reconcileDetail(ctx context.Context, d claims.Detail, strategy Strategy) (outcome, error) {
	existing, err := l.store.FindDetail(ctx, d.ClaimID, d.CPTCode)
	switch {
	case claims.IsNotFound(err):
		if err := l.store.CreateDetail(ctx, d); err != nil {
			if errors.Is(err, claims.ErrDuplicate) {
				return skipped, nil
			}
			return failed, err
		}
		return created, nil
	case err != nil:
		return failed, err
	case strategy == Skip, sameReason(existing.DenialReason, d.DenialReason):
		return skipped, nil
	}

	if err := l.store.UpdateDetail(ctx, d); err != nil {
		return failed, err
	}
	return updated, nil
}

func (l *Loader) record(ctx context.Context, s *Summary) {
	if l.recorder == nil {
		return
	}
	if _, err := l.recorder.Record(ctx, s.Run()); err != nil {
		l.logger.Warn("record import run failed", "run", s.RunID, "error", err)
		s.warn("import history not recorded: %v", err)
	}
}

func sameReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
