package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lei/jenkins-gateway/internal/config"
	"github.com/lei/jenkins-gateway/internal/gateway/jenkins"
	"github.com/lei/jenkins-gateway/internal/ledger"
	"github.com/lei/jenkins-gateway/internal/mcpserver"
	"github.com/lei/jenkins-gateway/internal/service"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over stdio",
		Long:  "Runs the tool server on stdin/stdout for MCP clients. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout carries the protocol; logs must stay off it.
	log := logger.NewWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	svc := newService(cfg, log)
	srv := mcpserver.New(svc, log, Version)

	log.Info("starting stdio tool server", "jenkins_url", cfg.Jenkins.URL, "store_path", cfg.Store.Path)
	return mcpserver.ServeStdio(srv)
}

// newService wires the Jenkins client, ledger store, and service
// layer from configuration. Shared by both serving surfaces.
func newService(cfg *config.Config, log *logger.Logger) *service.Service {
	client := jenkins.NewClient(&jenkins.Config{
		URL:      cfg.Jenkins.URL,
		Username: cfg.Jenkins.Username,
		APIToken: cfg.Jenkins.APIToken,
		Timeout:  cfg.Jenkins.Timeout,
	}, log)

	store := ledger.NewStore(cfg.Store.Path)

	return service.New(client, store, log, service.Options{
		QueueAttempts: cfg.Trigger.QueueAttempts,
		QueueDelay:    cfg.Trigger.QueueDelay,
	})
}
