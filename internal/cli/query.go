package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/query"
)

// queryOutput renders a query response as CSV in text mode and as the
// response envelope in JSON mode.
type queryOutput struct {
	*query.Response
}

func (q queryOutput) RenderText(w io.Writer) error {
	return q.WriteCSV(w)
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <document|@file|->",
		Short: "Run a JSON query document",
		Long: `Run a JSON query document against the datastore.

The document is given inline, read from a file with @path, or read from
stdin with -. Text output is CSV; JSON output is the response envelope
(results, count, schema, query).

Example:
  datastore query '{"resources":[{"id":"trees"}],"limit":10}'
  datastore query @query.json --format json
  cat query.json | datastore query -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runQuery(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	raw, err := readDocument(arg, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ErrCodeInput, ExitCommandError, "failed to read query document", err)
	}

	env, err := openEnvironment(opts, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := env.queryService().Run(ctx, raw)
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, ExitCommandError, "query failed", err)
	}
	if resp.Count != nil {
		formatter.VerboseLog("%d matching rows", *resp.Count)
	}

	if formatter.Format == "json" {
		return formatter.Success(resp)
	}
	return formatter.Success(queryOutput{resp})
}

// readDocument resolves the inline, @file and stdin forms.
func readDocument(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(arg[1:])
	default:
		return []byte(arg), nil
	}
}
