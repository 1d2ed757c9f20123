package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
)

// DropOptions holds flags for the drop command.
type DropOptions struct {
	*RootOptions
	Version string
}

// DropResult is the output of the drop command.
type DropResult struct {
	Identifier string `json:"identifier"`
	Table      string `json:"table"`
}

func (r DropResult) String() string {
	return fmt.Sprintf("Dropped %s (%s)", r.Identifier, r.Table)
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "drop <resource-id>",
		Short:         "Drop the datastore table of a resource",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "resource version")

	return cmd
}

func runDrop(opts *DropOptions, resourceID string, cmd *cobra.Command) error {
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

	res := ir.Resource{ID: resourceID, Version: opts.Version}
	if err := env.store.DropResource(ctx, res); err != nil {
		if errors.Is(err, datastore.ErrTableNotFound) {
			return formatter.Fail(ErrCodeNotFound, ExitCommandError, "drop failed", err)
		}
		return formatter.Fail(ErrCodeDatabase, ExitCommandError, "drop failed", err)
	}

	return formatter.Success(DropResult{Identifier: res.Identifier(), Table: ir.TableName(res.Identifier())})
}
