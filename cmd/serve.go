package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/handlers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studyshelf HTTP API",
		Long: `Starts the studyshelf JSON API on the specified port.

Pending changes are flushed to storage when the server shuts down.`,
		Example: `  # Start server on default port 8888
  studyshelf serve

  # Start server on custom port with an in-memory catalog
  studyshelf serve --port 3000 --ephemeral`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if cmd.Flags().Changed("port") {
					a.Config.Port = port
				}
				return serve(ctx, a)
			})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

func serve(ctx context.Context, a *app.App) error {
	addr := ":" + a.Config.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handlers.New(a).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Studyshelf API available", "addr", addr, "url", "http://localhost"+addr, "persistent", a.Persistent())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		// Give server 5 seconds to shut down gracefully
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		if err := a.Flush(shutdownCtx); err != nil {
			slog.Error("Final save failed", "err", err)
		}
		slog.Info("Server stopped")
		return nil
	})

	return g.Wait()
}
