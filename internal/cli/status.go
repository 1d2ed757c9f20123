package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/ir"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Version string
	All     bool
}

// StatusResult lists post-import runs, newest last.
type StatusResult struct {
	Identifier string                `json:"identifier"`
	Runs       []ir.PostImportRecord `json:"runs"`
}

func (r StatusResult) RenderText(w io.Writer) error {
	for _, run := range r.Runs {
		fmt.Fprintf(w, "%s #%d %s: %s", r.Identifier, run.Seq, run.RunID, run.Status)
		if run.Message != "" {
			fmt.Fprintf(w, " - %s", run.Message)
		}
		fmt.Fprintln(w)
		for _, stage := range run.Stages {
			fmt.Fprintf(w, "  %s: %s", stage.Processor, stage.Status)
			if stage.Message != "" {
				fmt.Fprintf(w, " - %s", stage.Message)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <resource-id>",
		Short: "Show post-import results for a resource",
		Long: `Show the stored post-import result of a resource. By default only the
latest run is shown; --all lists every run.

Example:
  datastore status trees --version 2024-01
  datastore status trees --all --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "resource version")
	cmd.Flags().BoolVar(&opts.All, "all", false, "list every run")

	return cmd
}

func runStatus(opts *StatusOptions, resourceID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	identifier := ir.Resource{ID: resourceID, Version: opts.Version}.Identifier()
	var runs []ir.PostImportRecord
	if opts.All {
		runs, err = env.store.ReadResults(ctx, identifier)
	} else {
		var latest *ir.PostImportRecord
		latest, err = env.store.LatestResult(ctx, identifier)
		if latest != nil {
			runs = []ir.PostImportRecord{*latest}
		}
	}
	if err != nil {
		return formatter.Fail(ErrCodeDatabase, ExitCommandError, "failed to read post import results", err)
	}
	if len(runs) == 0 {
		if err := formatter.Error(ErrCodeNotFound, fmt.Sprintf("no post import results for %s", identifier), nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "no post import results for "+identifier)
	}

	return formatter.Success(StatusResult{Identifier: identifier, Runs: runs})
}
