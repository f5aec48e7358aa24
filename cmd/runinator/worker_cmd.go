package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runinator/runinator/pkg/broker"
	"github.com/runinator/runinator/pkg/gossip"
	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/types"
	"github.com/runinator/runinator/pkg/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker that executes dispatched tasks",
	Long: `worker polls the broker for queued task commands, resolves a
provider by the task's action_name, executes it bounded by the task's
timeout, and records the outcome against the metadata service. It
advertises itself over gossip as a WorkerAnnouncement so other workers
and a dynamically configured metadata locator can discover it.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().String("id", "", "Worker ID used as the broker consumer name and gossip worker_id (generated if empty)")
	workerCmd.Flags().String("broker-addr", "http://127.0.0.1:7070", "Broker HTTP base address")
	workerCmd.Flags().Duration("poll-timeout", 5*time.Second, "How long each broker poll call blocks waiting for a delivery")
	workerCmd.Flags().Duration("api-timeout", 5*time.Second, "Timeout for each HTTP call to the broker or metadata service")
	workerCmd.Flags().String("external-provider", "", "Path to an external provider executable speaking the stdin/stdout JSON-RPC protocol")
	workerCmd.Flags().String("external-provider-action", "", "action_name to register the external provider under (required if --external-provider is set)")
	workerCmd.Flags().String("metadata-mode", "gossip", `How the worker reaches the metadata service: "gossip" resolves it dynamically from gossip announcements, "static" uses --metadata-addr`)
	workerCmd.Flags().String("metadata-addr", "http://127.0.0.1:8080", "Metadata service HTTP base address (metadata-mode=static only)")
	workerCmd.Flags().String("gossip-bind", ":5000", "UDP address to bind the gossip socket to (same port as every other gossip participant, since broadcasts are addressed to a fixed port)")
	workerCmd.Flags().String("gossip-targets", "255.255.255.255:5000", "Comma-separated list of host:port gossip broadcast targets; only the first entry is used")
	workerCmd.Flags().String("advertise-addr", "127.0.0.1", "Address to advertise this worker at")
	workerCmd.Flags().Int("command-port", 0, "Command port to advertise for this worker (reserved; this worker polls the broker rather than accepting pushed commands)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if err := applyConfigFile(cmd, configPath); err != nil {
		return err
	}
	initLogging(cmd)

	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = uuid.NewString()
	}
	brokerAddr, _ := cmd.Flags().GetString("broker-addr")
	pollTimeout, _ := cmd.Flags().GetDuration("poll-timeout")
	apiTimeout, _ := cmd.Flags().GetDuration("api-timeout")
	externalProvider, _ := cmd.Flags().GetString("external-provider")
	externalProviderAction, _ := cmd.Flags().GetString("external-provider-action")
	metadataMode, _ := cmd.Flags().GetString("metadata-mode")
	metadataAddr, _ := cmd.Flags().GetString("metadata-addr")
	gossipBind, _ := cmd.Flags().GetString("gossip-bind")
	gossipTargets, _ := cmd.Flags().GetString("gossip-targets")
	advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")
	commandPort, _ := cmd.Flags().GetInt("command-port")

	if externalProvider != "" {
		if externalProviderAction == "" {
			return fmt.Errorf("--external-provider-action is required when --external-provider is set")
		}
		ep, err := providerRegisterExternal(cmd.Context(), externalProvider, externalProviderAction)
		if err != nil {
			return err
		}
		defer ep.Close()
	}

	metadataLoc, stopGossip, err := buildWorkerMetadataLocator(metadataMode, metadataAddr, id, advertiseAddr, commandPort, gossipBind, gossipTargets)
	if err != nil {
		return err
	}
	defer stopGossip()

	brokerClient := broker.NewClient(locator.NewStatic(brokerAddr), apiTimeout)
	metadataClient := locator.NewHTTPClient(metadataLoc, apiTimeout)

	w := worker.New(worker.Config{ID: id, PollTimeout: pollTimeout}, brokerClient, metadataClient)
	w.Start()
	defer w.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("broker", true, "ready")
	metrics.SetCriticalComponents("broker")

	fmt.Printf("runinator worker %s running (broker=%s, metadata-mode=%s)\n", id, brokerAddr, metadataMode)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("shutting down...")
	return nil
}

// buildWorkerMetadataLocator resolves how this worker reaches the
// metadata service. "static" just wraps --metadata-addr. "gossip" binds
// a gossip socket, advertises this worker as a WorkerAnnouncement so
// other peers can see it, and resolves the metadata service dynamically
// from whatever web-service announcements arrive.
func buildWorkerMetadataLocator(mode, metadataAddr, workerID, advertiseAddr string, commandPort int, gossipBind, gossipTargets string) (locator.Locator, func(), error) {
	noop := func() {}

	switch mode {
	case "static":
		return locator.NewStatic(metadataAddr), noop, nil

	case "gossip":
		sock, err := gossip.Bind(gossipBind, firstTarget(gossipTargets))
		if err != nil {
			return nil, noop, fmt.Errorf("bind gossip socket: %w", err)
		}
		registry := gossip.NewRegistry(30 * time.Second)
		advertiser := gossip.NewAdvertiser(sock, registry, 5*time.Second)

		advertiser.SetSelf(types.NewWorkerGossip(types.WorkerAnnouncement{
			WorkerID:    workerID,
			Address:     advertiseAddr,
			CommandPort: commandPort,
		}))

		ctx, cancel := context.WithCancel(context.Background())
		advertiser.Start(ctx)

		refreshStop := make(chan struct{})
		go refreshKnownPeers(advertiser, registry, workerID, advertiseAddr, commandPort, refreshStop)

		stop := func() {
			close(refreshStop)
			advertiser.Stop()
			cancel()
		}
		return locator.NewGossip(registry), stop, nil

	default:
		return nil, noop, fmt.Errorf("unknown metadata-mode %q (want gossip or static)", mode)
	}
}

// refreshKnownPeers periodically re-announces this worker with an
// up-to-date KnownPeers list, so a peer that joins after the first
// heartbeat still eventually sees the full mesh.
func refreshKnownPeers(advertiser *gossip.Advertiser, registry *gossip.Registry, workerID, advertiseAddr string, commandPort int, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			peers := make([]string, 0)
			for _, w := range registry.Workers() {
				if w.WorkerID != workerID {
					peers = append(peers, w.WorkerID)
				}
			}
			advertiser.SetSelf(types.NewWorkerGossip(types.WorkerAnnouncement{
				WorkerID:    workerID,
				Address:     advertiseAddr,
				CommandPort: commandPort,
				KnownPeers:  peers,
			}))
		}
	}
}
