// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config decodes the driver's HCL configuration file. It covers
// only the options the driver and its external collaborators (the
// OVSDB/ofctl transport, the agent lifecycle) need to resolve the
// integration bridge and the outbound patch port; everything else
// (rule/member catalogs, port descriptions) arrives over the Driver API
// at runtime, not from this file.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/stackforge/networking-ovs-firewall/internal/errors"
)

// Config is the minimal recognized option set from spec §6.
type Config struct {
	IntegrationBridge     string `hcl:"integration_bridge,optional"`
	TunnelBridge          string `hcl:"tunnel_bridge,optional"`
	IntPeerPatchPort      string `hcl:"int_peer_patch_port,optional"`
	TunPeerPatchPort      string `hcl:"tun_peer_patch_port,optional"`
	LocalIP               string `hcl:"local_ip,optional"`
	BridgeMappings        string `hcl:"bridge_mappings,optional"`
	UseVethInterconnection bool  `hcl:"use_veth_interconnection,optional"`
	OfInterface           string `hcl:"of_interface,optional"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		IntegrationBridge: "br-int",
		OfInterface:       "native",
	}
}

// Load reads and decodes an HCL file at path, applying defaults for any
// option it leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "failed to read config file")
	}
	return LoadBytes(path, data)
}

// LoadBytes decodes HCL already read into memory, applying defaults.
func LoadBytes(filename string, data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := hclsimple.Decode(filename, data, nil, cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformed, "failed to decode driver config")
	}
	if cfg.IntegrationBridge == "" {
		cfg.IntegrationBridge = "br-int"
	}
	return cfg, nil
}
