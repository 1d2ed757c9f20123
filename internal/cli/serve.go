package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Ready, if set, receives the bound address once the listener is up
	// (for testing with ":0").
	Ready chan<- string
}

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Serve the datastore HTTP API:

  POST /api/1/datastore/query                 run a query document (?format=csv for CSV)
  GET  /api/1/datastore/imports/{identifier}  post-import results of a resource

Example:
  datastore serve --addr :8080 --config datastore.toml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: server.addr from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := env.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	addr := opts.Addr
	if addr == "" {
		addr = env.cfg.Server.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           api.Handler(env.queryService(), env.store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	slog.Info("server listening", "addr", ln.Addr().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
	if opts.Ready != nil {
		opts.Ready <- ln.Addr().String()
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "server shutdown", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}
