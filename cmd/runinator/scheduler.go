package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runinator/runinator/pkg/broker"
	"github.com/runinator/runinator/pkg/gossip"
	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/scheduler"
	"github.com/runinator/runinator/pkg/storage"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduler control loop",
	Long: `scheduler periodically evaluates every ScheduledTask in the
metadata store and publishes a TaskCommand to the broker for each one
that is due, per the periodic iteration described in the task
scheduling design.`,
	RunE: runScheduler,
}

func init() {
	schedulerCmd.Flags().String("db", "./runinator-data", "Directory holding the SQLite database (metadata-mode=direct only)")
	schedulerCmd.Flags().String("broker-addr", "http://127.0.0.1:7070", "Broker HTTP base address")
	schedulerCmd.Flags().Duration("frequency", 5*time.Second, "Period between scheduler iterations")
	schedulerCmd.Flags().Duration("api-timeout", 5*time.Second, "Timeout for each broker HTTP call")
	schedulerCmd.Flags().String("metadata-mode", "direct", `How the scheduler reaches task metadata: "direct" opens the SQLite file named by --db, "remote" talks to a metadata service over HTTP`)
	schedulerCmd.Flags().String("metadata-addr", "", "Metadata service HTTP base address (metadata-mode=remote only; if empty, resolved dynamically via gossip)")
	schedulerCmd.Flags().String("gossip-bind", ":5000", "UDP address to bind the gossip socket to (metadata-mode=remote only; same port as every other gossip participant, since broadcasts are addressed to a fixed port)")
	schedulerCmd.Flags().String("gossip-targets", "255.255.255.255:5000", "Comma-separated list of host:port gossip broadcast targets; only the first entry is used (metadata-mode=remote only)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if err := applyConfigFile(cmd, configPath); err != nil {
		return err
	}
	initLogging(cmd)

	dbDir, _ := cmd.Flags().GetString("db")
	brokerAddr, _ := cmd.Flags().GetString("broker-addr")
	frequency, _ := cmd.Flags().GetDuration("frequency")
	apiTimeout, _ := cmd.Flags().GetDuration("api-timeout")
	metadataMode, _ := cmd.Flags().GetString("metadata-mode")
	metadataAddr, _ := cmd.Flags().GetString("metadata-addr")
	gossipBind, _ := cmd.Flags().GetString("gossip-bind")
	gossipTargets, _ := cmd.Flags().GetString("gossip-targets")

	store, stopGossip, err := buildSchedulerStore(metadataMode, dbDir, metadataAddr, gossipBind, gossipTargets, apiTimeout)
	if err != nil {
		return err
	}
	defer store.Close()
	defer stopGossip()

	brokerClient := broker.NewClient(locator.NewStatic(brokerAddr), apiTimeout)

	sched := scheduler.New(store, brokerClient, frequency)
	sched.Start()
	defer sched.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "ready")
	metrics.SetCriticalComponents("store")

	fmt.Printf("runinator scheduler running (frequency=%s, broker=%s, metadata-mode=%s)\n", frequency, brokerAddr, metadataMode)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("shutting down...")
	return nil
}

// buildSchedulerStore constructs the Store the scheduler reads and
// writes through, per --metadata-mode. In "remote" mode without an
// explicit --metadata-addr, it binds a gossip socket and resolves the
// metadata service dynamically; the returned registry is never given a
// self announcement via SetSelf, since the scheduler has no gossip
// announcement kind of its own — it only listens and prunes.
func buildSchedulerStore(mode, dbDir, metadataAddr, gossipBind, gossipTargets string, apiTimeout time.Duration) (storage.Store, func(), error) {
	noop := func() {}

	switch mode {
	case "direct":
		store, err := storage.NewSQLStore(dbDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open store: %w", err)
		}
		return store, noop, nil

	case "remote":
		var loc locator.Locator
		stop := noop

		if metadataAddr != "" {
			loc = locator.NewStatic(metadataAddr)
		} else {
			sock, err := gossip.Bind(gossipBind, firstTarget(gossipTargets))
			if err != nil {
				return nil, noop, fmt.Errorf("bind gossip socket: %w", err)
			}
			registry := gossip.NewRegistry(30 * time.Second)
			advertiser := gossip.NewAdvertiser(sock, registry, 5*time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			advertiser.Start(ctx)
			stop = func() {
				advertiser.Stop()
				cancel()
			}
			loc = locator.NewGossip(registry)
		}

		client := locator.NewHTTPClient(loc, apiTimeout)
		return storage.NewRemoteStore(client), stop, nil

	default:
		return nil, noop, fmt.Errorf("unknown metadata-mode %q (want direct or remote)", mode)
	}
}
