package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lei/jenkins-gateway/internal/api"
	"github.com/lei/jenkins-gateway/internal/config"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

func newServeHTTPCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve tools over HTTP",
		Long:  "Runs the tool server as an HTTP API with optional API key authentication.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeHTTP(*configPath, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

func runServeHTTP(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	svc := newService(cfg, log)

	handlers := api.NewHandlers(svc)
	authMiddleware := api.NewAuthMiddleware(cfg.Auth.APIKeys)
	loggingMiddleware := api.NewLoggingMiddleware(log)
	router := api.NewRouter(handlers, authMiddleware, loggingMiddleware)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErrors := make(chan error, 1)

	go func() {
		log.Info("starting http server", "port", cfg.Server.Port, "jenkins_url", cfg.Jenkins.URL)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}
