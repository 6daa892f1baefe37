package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/fin"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Period      string
	Currency    string
	Remote      bool
	Concurrency int

	// DocIDs overrides the document id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	DocIDs engine.IDGenerator
}

// IngestOutcome is the per-file result of a batch ingest.
type IngestOutcome struct {
	File   string         `json:"file"`
	Result *engine.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// IngestSummary is the output of the ingest command.
type IngestSummary struct {
	Outcomes    []IngestOutcome `json:"outcomes"`
	Ready       int             `json:"ready"`
	NeedsReview int             `json:"needs_review"`
	Failed      int             `json:"failed"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Start runs for one or more documents",
		Long: `Store each document and run it through parsing, extraction and
validation. Runs that need a reviewer stop at the review gate; the rest
complete with ratios.

Files are processed concurrently, up to --concurrency at a time.

Exit codes:
  0 - Every document started
  1 - One or more documents failed to start
  2 - Command error (config, missing file, etc.)

Examples:
  finflow ingest q4.pdf
  finflow ingest statements/*.xlsx --period 2024-12-31 --currency USD
  finflow ingest q4.pdf --remote --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Period, "period", "", "period hint used when extraction finds none")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "currency hint used when extraction finds none")
	cmd.Flags().BoolVar(&opts.Remote, "remote", false, "pass an uploaded document reference to the extraction service")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "maximum documents processed at once")

	return cmd
}

func runIngest(opts *IngestOptions, files []string, cmd *cobra.Command) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot read %s", file), err)
		}
	}
	if opts.Concurrency < 1 {
		return NewExitError(ExitCommandError, "concurrency must be at least 1")
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := opts.DocIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	out := opts.formatter(cmd)
	options := fin.RunOptions{Period: opts.Period, Currency: opts.Currency, UseRemote: opts.Remote}

	outcomes := make([]IngestOutcome, len(files))
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(opts.Concurrency)

	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = IngestOutcome{File: file}

			docID := ids.Generate()
			stored, err := saveDocument(a.Docs, docID, file)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			out.VerboseLog("stored %s as %s", file, stored)

			res, err := a.Engine.Start(ctx, engine.StartRequest{
				DocID:   docID,
				DocPath: stored,
				Options: options,
			})
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			outcomes[i].Result = res
			return nil
		})
	}
	// Per-file failures are recorded in outcomes; the group never fails.
	_ = g.Wait()

	summary := IngestSummary{Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			summary.Failed++
		case o.Result.Status == engine.ResultNeedsReview:
			summary.NeedsReview++
		default:
			summary.Ready++
		}
	}

	if err := out.Print(summary, func(w io.Writer) {
		for _, o := range summary.Outcomes {
			if o.Error != "" {
				fmt.Fprintf(w, "✗ %s\n  %s\n", o.File, o.Error)
				continue
			}
			fmt.Fprintf(w, "✓ %s\n", o.File)
			writeResult(w, o.Result)
		}
		fmt.Fprintf(w, "\nIngest Summary: %d ready, %d need review, %d failed\n",
			summary.Ready, summary.NeedsReview, summary.Failed)
	}); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed", summary.Failed))
	}
	return nil
}

type documentSaver interface {
	Save(docID, name string, r io.Reader) (string, error)
}

// saveDocument copies file into the document store under docID.
func saveDocument(docs documentSaver, docID, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return docs.Save(docID, filepath.Base(file), f)
}
