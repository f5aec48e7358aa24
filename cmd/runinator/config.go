package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig is the union of every flag a Runinator subcommand accepts,
// loadable from a single YAML file via --config. Flags explicitly set on
// the command line always win over values loaded here.
type fileConfig struct {
	GossipBind     string `yaml:"gossip_bind"`
	GossipPort     int    `yaml:"gossip_port"`
	GossipTargets  string `yaml:"gossip_targets"`
	AdvertiseAddr  string `yaml:"advertise_addr"`
	AdvertisePath  string `yaml:"advertise_path"`
	Port           int    `yaml:"port"`
	DB             string `yaml:"db"`
	BrokerAddr     string `yaml:"broker_addr"`
	PollTimeout    string `yaml:"poll_timeout"`
	Frequency      string `yaml:"frequency"`
	APITimeout     string `yaml:"api_timeout"`
	MetadataMode   string `yaml:"metadata_mode"`
	MetadataAddr   string `yaml:"metadata_addr"`
}

// applyConfigFile loads path (if non-empty) and sets any flag on cmd
// whose name matches a populated field and that the user did not
// already set explicitly on the command line.
func applyConfigFile(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set := func(name, value string) {
		if value == "" {
			return
		}
		if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
			return
		}
		_ = cmd.Flags().Set(name, value)
	}

	set("gossip-bind", cfg.GossipBind)
	if cfg.GossipPort != 0 {
		set("gossip-port", fmt.Sprintf("%d", cfg.GossipPort))
	}
	set("gossip-targets", cfg.GossipTargets)
	set("advertise-addr", cfg.AdvertiseAddr)
	set("advertise-path", cfg.AdvertisePath)
	if cfg.Port != 0 {
		set("port", fmt.Sprintf("%d", cfg.Port))
	}
	set("db", cfg.DB)
	set("broker-addr", cfg.BrokerAddr)
	set("poll-timeout", cfg.PollTimeout)
	set("frequency", cfg.Frequency)
	set("api-timeout", cfg.APITimeout)
	set("metadata-mode", cfg.MetadataMode)
	set("metadata-addr", cfg.MetadataAddr)

	return nil
}
