package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/neam-go/internal/api"
	"github.com/gonkalabs/neam-go/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the markup HTTP service",
	Long: `Serve starts the HTTP service:

  GET  /health        liveness
  GET  /v1/tags       the tag map in use
  POST /v1/markup     {"text": "...", "mentions": [...]} -> {"id": "...", "markup": "..."}
  POST /v1/annotate   {"text": "..."} -> {"id": "...", "text": "...", "mentions": [...]}`,
	Example: `  neam serve
  neam serve --listen :9000 --annotator gazetteer`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen")); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("app error", "err", err)
		return err
	}

	mux := http.NewServeMux()
	api.New(a).Register(mux)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()

		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("starting markup server",
		"addr", cfg.ListenAddr,
		"annotator", cfg.Annotator,
		"tags", a.Tags().Len(),
		"cache", cfg.CacheSize,
		"signing", a.Signer() != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
