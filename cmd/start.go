/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/sikoma-be/handler"
	"github.com/tieubaoca/sikoma-be/service"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second

	// Uploads of max_upload_bytes over slow links and a synchronous ingestion
	// of a long scan both have to fit in these.
	readTimeout  = 5 * time.Minute
	writeTimeout = 15 * time.Minute
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Starts the server that handles uploads, searches and document management`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		if !a.cfg.Debug && !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		if a.cfg.Auth.JWTSecret == "" {
			a.logger.Warn("auth.jwt_secret is empty, API routes are unauthenticated")
		}

		maxUpload := a.cfg.Ingest.MaxUploadBytes
		router := handler.NewRouter(handler.RouterConfig{
			Upload:         handler.NewUploadHandler(a.ingest, maxUpload, a.logger),
			Search:         handler.NewSearchHandler(a.search, maxUpload, a.logger),
			Documents:      handler.NewDocumentHandler(a.documents, a.logger),
			Health:         handler.NewHealthHandler(a.checks),
			Progress:       service.NewWebSocketService(a.hub, a.cfg.Auth.AllowedOrigins, a.logger).HandleProgress,
			Metrics:        a.metrics,
			JWTSecret:      a.cfg.Auth.JWTSecret,
			CookieName:     a.cfg.Auth.CookieName,
			AllowedOrigins: a.cfg.Auth.AllowedOrigins,
			Logger:         a.logger,
		})
		router.MaxMultipartMemory = 32 << 20

		server := newHTTPServer(":"+a.cfg.Port, router)

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Starting server", zap.String("port", a.cfg.Port))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	},
}

// newHTTPServer applies the server timeouts. Websocket connections set their
// own deadlines per frame once hijacked.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
