package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/dictionary"
	"github.com/roach88/datastore/internal/importer"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/postimport"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Version     string
	MimeType    string
	DescribedBy string
	Dictionary  string

	// RunIDs overrides the post-import run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs postimport.RunIDGenerator
}

// ImportResult is the output of the import command.
type ImportResult struct {
	Import     *importer.Summary    `json:"import"`
	PostImport *ir.PostImportRecord `json:"post_import,omitempty"`
}

// RenderText writes a short human-readable summary.
func (r ImportResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Imported %d rows into %s (%s)\n", r.Import.Rows, r.Import.Identifier, r.Import.Table)
	if r.PostImport == nil {
		return nil
	}
	fmt.Fprintf(w, "Post import: %s", r.PostImport.Status)
	if r.PostImport.Message != "" {
		fmt.Fprintf(w, " - %s", r.PostImport.Message)
	}
	fmt.Fprintln(w)
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <resource-id> <file>",
		Short: "Import a CSV or TSV file and run post-import processing",
		Long: `Import a delimited file into the resource's datastore table, replacing any
existing table, then run the post-import processors (dictionary enforcement).

Example:
  datastore import trees ./trees.csv --version 2024-01
  datastore import permits ./permits.tsv --described-by permits
  datastore import budget ./budget.csv --dictionary ./budget.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "resource version")
	cmd.Flags().StringVar(&opts.MimeType, "mime-type", "", "mime type (default: from the file extension)")
	cmd.Flags().StringVar(&opts.DescribedBy, "described-by", "", "dictionary ID (reference mode)")
	cmd.Flags().StringVar(&opts.Dictionary, "dictionary", "", "dictionary file attached to the resource (inline mode)")

	return cmd
}

func runImport(opts *ImportOptions, resourceID, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	res := ir.Resource{
		ID:          resourceID,
		Version:     opts.Version,
		FilePath:    path,
		MimeType:    opts.MimeType,
		DescribedBy: opts.DescribedBy,
	}
	if opts.Dictionary != "" {
		dicts, err := dictionary.LoadFile(opts.Dictionary)
		if err != nil {
			return formatter.Fail(ErrCodeDictionary, ExitCommandError, "failed to load dictionary", err)
		}
		if len(dicts) != 1 {
			return formatter.Fail(ErrCodeDictionary, ExitCommandError, "failed to load dictionary",
				fmt.Errorf("%s holds %d dictionaries, want 1", opts.Dictionary, len(dicts)))
		}
		res.Dictionary = &dicts[0]
	}

	env, err := openEnvironment(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	var pipelineOpts []postimport.PipelineOption
	if opts.RunIDs != nil {
		pipelineOpts = append(pipelineOpts, postimport.WithRunIDGenerator(opts.RunIDs))
	}
	pipeline, err := env.pipeline(pipelineOpts...)
	if err != nil {
		return formatter.Fail(ErrCodeDictionary, ExitCommandError, "failed to load dictionaries", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	queue := postimport.NewQueue()
	imp := importer.New(env.store,
		importer.WithQueue(queue),
		importer.WithBatchSize(env.cfg.Datastore.BatchSize),
	)
	summary, err := imp.Import(ctx, res)
	queue.Close()
	if err != nil {
		return formatter.Fail(ErrCodeImport, ExitCommandError, "import failed", err)
	}
	formatter.VerboseLog("Imported %d rows, %d columns", summary.Rows, len(summary.Columns))

	workers := postimport.NewWorkers(queue, pipeline)
	if err := workers.Run(ctx, env.cfg.Datastore.PostImportWorkers); err != nil {
		return formatter.Fail(ErrCodePostImport, ExitCommandError, "post import failed", err)
	}

	record, err := env.store.LatestResult(ctx, summary.Identifier)
	if err != nil {
		return formatter.Fail(ErrCodeDatabase, ExitCommandError, "failed to read post import result", err)
	}

	if err := formatter.Success(ImportResult{Import: summary, PostImport: record}); err != nil {
		return err
	}
	if record != nil && record.Status == ir.StatusError {
		return NewExitError(ExitFailure, "post import failed: "+record.Message)
	}
	return nil
}
