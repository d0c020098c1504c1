package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/unslug/backend/internal/api"
	"github.com/wonny/unslug/backend/internal/api/handlers"
	"github.com/wonny/unslug/backend/internal/scheduler"
	"github.com/wonny/unslug/backend/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API and websocket server.

Endpoints:
  GET  /health                       - Health check
  GET  /api/signals                  - Latest signal per symbol
  GET  /api/signals/{symbol}/latest  - Latest signal for one symbol
  POST /api/signals/{id}/approve     - Apply a review decision
  GET  /api/approvals/{symbol}       - Approval audit trail
  GET  /api/city                     - City visualization state
  GET  /ws                           - Realtime signal stream

Example:
  go run ./cmd/unslug api
  go run ./cmd/unslug api --port 8090 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run the scan scheduler in-process so new signals stream to /ws")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	stack, err := buildStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	if apiPort != "" {
		stack.cfg.Port = apiPort
	}

	log := stack.log
	log.WithFields(map[string]interface{}{
		"port": stack.cfg.Port,
		"env":  stack.cfg.Env,
	}).Info("Initializing API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub(log)
	go hub.Run(ctx)

	signalHandler := handlers.NewSignalHandler(stack.signals, stack.signalCache, log)
	approvalHandler := handlers.NewApprovalHandler(stack.approver, stack.approvals, log)
	cityHandler := handlers.NewCityHandler(stack.signals, stack.strategy.City, log)

	router := api.NewRouter(signalHandler, approvalHandler, cityHandler, hub, log)
	server := api.New(stack.cfg, log, router)

	var sched *scheduler.Scheduler
	if apiWithScheduler {
		runner, err := stack.newRunner(hub)
		if err != nil {
			return err
		}
		sched = scheduler.New(log)
		if err := sched.AddJob(jobs.NewScanJob(runner, stack.cfg, log)); err != nil {
			return fmt.Errorf("register scan job: %w", err)
		}
		sched.Start()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", stack.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
