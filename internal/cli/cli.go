// internal/cli/cli.go

// Package cli defines the synthator command surface. Parsing and validation
// live here; everything after a valid Options is internal/app's problem.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"synthator/internal/app"
	"synthator/internal/version"
)

const apiKeyEnv = "SYNTHATOR_API_KEY"

// Execute parses argv, runs the pipeline, and returns a process exit code:
// 0 success, 1 at least one batch failed, 2 usage or schema error,
// 3 runtime error, 130 cancelled.
func Execute(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	opts := Defaults()
	code := 0

	root := &cobra.Command{
		Use:   "synthator",
		Short: "Annotate genomic variants with sequence-to-function effect scores",
		Long: `synthator groups a sorted variant index into context-window batches,
scores each batch with a remote sequence-to-function model, and writes one
tidy parquet file per batch. Batch outputs are deterministic, so interrupted
runs restart cheaply with --resume.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Fprintf(stdout, "synthator version %s\n", version.Version)
				return nil
			}
			if opts.APIKey == "" {
				opts.APIKey = os.Getenv(apiKeyEnv)
			}
			if err := opts.Validate(); err != nil {
				code = 2
				return err
			}
			code = app.Run(cmd.Context(), app.Options{
				VariantIndexPath: opts.VariantIndexPath,
				APIKey:           opts.APIKey,
				ServerURL:        opts.ServerURL,
				Output:           opts.Output,
				ContextWindow:    opts.ContextWindow,
				BatchWindow:      opts.BatchWindow,
				Timeout:          opts.Timeout,
				TestMode:         opts.TestMode,
				Resume:           opts.Resume,
				Quiet:            opts.Quiet,
			}, stderr)
			return nil
		},
	}

	fl := root.Flags()
	fl.StringVar(&opts.VariantIndexPath, "variant-index", "", "variant index parquet (local path or s3://) [*]")
	fl.StringVar(&opts.APIKey, "api-key", "", "scoring service API key (or "+apiKeyEnv+")")
	fl.StringVar(&opts.ServerURL, "server", "", "scoring service base URL [*]")
	fl.StringVar(&opts.Output, "output", opts.Output, "output root for batch files (local path or s3://)")
	fl.Int64Var(&opts.ContextWindow, "context-window", opts.ContextWindow, "sequence context per batch (bp)")
	fl.IntVar(&opts.BatchWindow, "batch-window", opts.BatchWindow, "max variants per batch")
	fl.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "per-request scoring timeout")
	fl.BoolVar(&opts.TestMode, "test-mode", false, "process only 2 batches and stop")
	fl.BoolVar(&opts.Resume, "resume", false, "skip batches whose output file already exists")
	fl.BoolVar(&opts.Quiet, "quiet", false, "log errors only")
	fl.BoolVar(&opts.Version, "version", false, "print version and exit")

	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if code == 0 {
			code = 2
		}
	}
	return code
}
