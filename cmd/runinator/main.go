package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runinator/runinator/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "runinator",
	Short: "Runinator - a distributed cron task scheduler",
	Long: `Runinator schedules cron-driven tasks onto a pool of workers
through a small set of independently-deployable components: a metadata
service, a broker, a scheduler, and one or more workers. Each runs as
its own subcommand so they can be scaled and restarted independently.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Runinator version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Optional YAML config file; flags take precedence over file values")

	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(brokerCmd)
	rootCmd.AddCommand(workerCmd)
}

func initLogging(cmd *cobra.Command) {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
