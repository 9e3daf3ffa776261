package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/adapter/provider"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/config"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/hub"
	store "github.com/TimeTravelerFromNow/openai-helpers/internal/repository"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
	handler "github.com/TimeTravelerFromNow/openai-helpers/internal/transport/http"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/transport/rpc"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/ws"
	"github.com/TimeTravelerFromNow/openai-helpers/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.Info("Starting run driver...")
	logrus.Infof("HTTP Port: %d", cfg.HTTPPort)
	logrus.Infof("RPC Port: %d", cfg.RPCPort)
	logrus.Infof("Database: %s", cfg.DatabaseURL)
	logrus.Infof("Sandbox root: %s (read-only: %t)", cfg.SandboxRoot, cfg.SandboxReadOnly)
	logrus.Infof("Provider URL: %s", cfg.ProviderURL)

	// The sandbox must exist before anything can run against it.
	ed, err := editor.New(cfg.SandboxRoot)
	if err != nil {
		logrus.Fatalf("Failed to initialize editor: %v", err)
	}

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		data, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			logrus.Fatalf("Failed to read policy file: %v", err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		logrus.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize provider
	prov := provider.NewProvider(cfg.Mode, cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	// Event hub
	eventHub := hub.NewHub()
	go eventHub.Run(ctx)

	// Initialize service
	registry := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(ed, policyEngine, cfg.SandboxReadOnly)
	svc := service.New(db, prov, dispatcher, registry.Handle, cfg, eventHub)

	server := handler.NewServer(svc, registry, ws.NewServer(eventHub))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	logrus.Infof("API started on port %d", cfg.HTTPPort)

	// RPC_PORT=0 disables the internal RPC listener.
	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc, registry.Handle)
		if err != nil {
			logrus.Fatalf("Failed to initialize RPC server: %v", err)
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.RPCPort)
			if err := rpcServer.Start(addr); err != nil {
				logrus.Fatalf("Failed to start RPC server: %v", err)
			}
		}()
		logrus.Infof("Internal RPC started on port %d", cfg.RPCPort)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down run driver...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("Failed to shutdown server gracefully: %v", err)
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("Failed to shutdown RPC server gracefully: %v", err)
		}
	}
	cancel()

	logrus.Info("Run driver stopped")
}
