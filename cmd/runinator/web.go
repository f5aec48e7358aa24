package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runinator/runinator/pkg/events"
	"github.com/runinator/runinator/pkg/gossip"
	"github.com/runinator/runinator/pkg/metadata"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Run the metadata HTTP service",
	Long: `web serves the metadata API: the system of record for
ScheduledTasks and TaskRuns. It advertises itself over gossip so
schedulers and workers configured with a dynamic locator can find it
without a static address.`,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().String("gossip-bind", ":5000", "UDP address to bind the gossip socket to")
	webCmd.Flags().String("gossip-port", "", "Accepted but not read; the broadcast port is the one in the --gossip-targets entry")
	webCmd.Flags().String("gossip-targets", "255.255.255.255:5000", "Comma-separated list of host:port gossip broadcast targets; only the first entry is used")
	webCmd.Flags().String("advertise-addr", "127.0.0.1", "Address to advertise this web service at")
	webCmd.Flags().String("advertise-path", "", "Base path to advertise, if served behind a path prefix")
	webCmd.Flags().Int("port", 8080, "HTTP port to listen on")
	webCmd.Flags().String("db", "./runinator-data", "Directory holding the SQLite database")
	webCmd.Flags().StringArray("init-script", nil, "Path to a SQL script to execute at startup, after schema migration (repeatable)")
}

func runWeb(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if err := applyConfigFile(cmd, configPath); err != nil {
		return err
	}
	initLogging(cmd)

	gossipBind, _ := cmd.Flags().GetString("gossip-bind")
	gossipTargets, _ := cmd.Flags().GetString("gossip-targets")
	advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")
	advertisePath, _ := cmd.Flags().GetString("advertise-path")
	port, _ := cmd.Flags().GetInt("port")
	dbDir, _ := cmd.Flags().GetString("db")

	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.NewSQLStore(dbDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	initScripts, _ := cmd.Flags().GetStringArray("init-script")
	if err := store.ExecuteScripts(initScripts); err != nil {
		return fmt.Errorf("run init scripts: %w", err)
	}

	evBroker := events.NewBroker()
	evBroker.Start()
	defer evBroker.Stop()

	srv := metadata.NewServer(store, evBroker)

	sock, err := gossip.Bind(gossipBind, firstTarget(gossipTargets))
	if err != nil {
		return fmt.Errorf("bind gossip socket: %w", err)
	}
	registry := gossip.NewRegistry(30 * time.Second)
	advertiser := gossip.NewAdvertiser(sock, registry, 5*time.Second)

	serviceID := uuid.NewString()
	advertiser.SetSelf(types.NewWebServiceGossip(types.WebServiceAnnouncement{
		ServiceID: serviceID,
		Address:   advertiseAddr,
		Port:      port,
		BasePath:  advertisePath,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	advertiser.Start(ctx)
	defer advertiser.Stop()

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "ready")
	metrics.SetCriticalComponents("store")

	addr := net.JoinHostPort("", strconv.Itoa(port))
	httpServer := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("runinator web listening on %s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("web server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func firstTarget(targets string) string {
	parts := strings.Split(targets, ",")
	return strings.TrimSpace(parts[0])
}
