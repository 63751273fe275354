package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/mindbloss/internal/adapters/http"
	"github.com/PabloGalante/mindbloss/internal/config"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), c.cfg)
		},
	}
	cmd.Flags().String("port", "", "listen port (default 8080)")
	_ = c.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := observability.Logger()

	if cfg.Mode == config.ModeGCP || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := httpadapter.NewServer(httpadapter.Services{
		CheckIns: a.checkins,
		Journal:  a.journalSvc,
		Analyze:  a.analyzer,
		Catalog:  a.catalog,
	}, httpadapter.Options{CORSOrigins: cfg.CORSOrigins})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("mindbloss API listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
