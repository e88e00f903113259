// Package cli implements the load_claims command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/erisa/internal/ingest"
)

// Output formats for the run summary.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Runner executes one import run. *ingest.Loader satisfies it.
type Runner interface {
	Run(ctx context.Context, opts ingest.Options) (*ingest.Summary, error)
}

// Opener connects the backing services and returns a Runner plus a release
// function. It is called only after flags validate.
type Opener func(ctx context.Context, verbose bool) (Runner, func(), error)

// Options holds the load_claims flags.
type Options struct {
	Format         string
	Mode           string
	UpdateExisting bool
	Clear          bool
	Strict         bool
	Verbose        bool
	Output         string
}

// Resolve validates the flags against paths and builds ingest options.
// modeSet reports whether --mode was given explicitly.
func (o *Options) Resolve(paths []string, modeSet bool) (ingest.Options, error) {
	format, err := ingest.ParseFormat(o.Format)
	if err != nil {
		return ingest.Options{}, err
	}

	mode, err := ingest.ParseMode(o.Mode)
	if err != nil {
		return ingest.Options{}, err
	}

	if o.Clear {
		if modeSet && mode != ingest.ModeClear {
			return ingest.Options{}, fmt.Errorf("--clear conflicts with --mode %s", mode)
		}
		mode = ingest.ModeClear
	}

	if o.Output != OutputText && o.Output != OutputJSON {
		return ingest.Options{}, fmt.Errorf("invalid output %q: want text or json", o.Output)
	}

	return ingest.Options{
		Paths:          paths,
		Format:         format,
		Mode:           mode,
		UpdateExisting: o.UpdateExisting,
	}, nil
}

// NewCommand builds the load_claims root command. defaultMode seeds --mode.
func NewCommand(open Opener, defaultMode string) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "load_claims <path>...",
		Short: "Import claims and claim details from CSV or JSON files",
		Long: `Import claims and claim details from one or more CSV or JSON files.

CSV files may be pipe or comma delimited, with or without a header row.
JSON files hold an object with "claims" and "claim_details" lists, or an
array of records. All files are parsed before anything is written; claims
are applied before details.

Modes:
  append     create new records, skip existing ones (default)
  overwrite  update matched records, create the rest
  clear      delete all claims and details, then create everything

Examples:
  load_claims data/claims.csv data/claim_details.csv
  load_claims --mode append --update-existing data/claims.csv
  load_claims --clear data/claims.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return NewExitError(ExitCommandError, "at least one input file is required")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, open, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "input format (csv|json); detected from the extension when empty")
	cmd.Flags().StringVar(&opts.Mode, "mode", defaultMode, "import mode (append|overwrite|clear)")
	cmd.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "in append mode, update records that already exist")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "delete all claims and details first (same as --mode clear)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when any record fails")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", OutputText, "summary format (text|json)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	return cmd
}

func run(cmd *cobra.Command, open Opener, opts *Options, paths []string) error {
	ingestOpts, err := opts.Resolve(paths, cmd.Flags().Changed("mode"))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	if ingestOpts.UpdateExisting && ingestOpts.Mode != ingest.ModeAppend {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: --update-existing has no effect in %s mode\n", ingestOpts.Mode)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner, release, err := open(ctx, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "database unavailable", err)
	}
	defer release()

	summary, err := runner.Run(ctx, ingestOpts)
	if summary != nil {
		if werr := writeSummary(cmd.OutOrStdout(), opts.Output, summary); werr != nil {
			return WrapExitError(ExitFailure, "write summary", werr)
		}
	}
	if err != nil {
		return classify(err)
	}

	if opts.Strict && summary.HasFailures() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d records failed", summary.Claims.Failed+summary.Details.Failed+summary.Unrecognized))
	}
	return nil
}

func writeSummary(w io.Writer, output string, s *ingest.Summary) error {
	if output == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return s.Render(w)
}
