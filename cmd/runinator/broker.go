package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runinator/runinator/pkg/broker"
	"github.com/runinator/runinator/pkg/metrics"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the broker HTTP service",
	Long: `broker exposes the in-memory task-command queue over HTTP:
publish, poll, ack, and nack. It holds no persistent state; restarting
it drops any queued or in-flight messages.`,
	RunE: runBroker,
}

func init() {
	brokerCmd.Flags().Int("port", 7070, "HTTP port to listen on")
}

func runBroker(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if err := applyConfigFile(cmd, configPath); err != nil {
		return err
	}
	initLogging(cmd)

	port, _ := cmd.Flags().GetInt("port")

	b := broker.New()
	srv := broker.NewServer(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := broker.NewMetricsCollector(b, 2*time.Second)
	go collector.Run(ctx)

	metrics.SetVersion(Version)
	metrics.RegisterComponent("queue", true, "ready")
	metrics.SetCriticalComponents("queue")

	addr := net.JoinHostPort("", strconv.Itoa(port))
	httpServer := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("runinator broker listening on %s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("broker server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
