// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IntegrationBridge != "br-int" {
		t.Errorf("expected default integration_bridge br-int, got %q", cfg.IntegrationBridge)
	}
}

func TestLoadBytes(t *testing.T) {
	src := []byte(`
integration_bridge = "br-int2"
tunnel_bridge       = "br-tun"
local_ip            = "10.0.0.5"
use_veth_interconnection = true
of_interface        = "ovs-ofctl"
`)
	cfg, err := LoadBytes("test.hcl", src)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if cfg.IntegrationBridge != "br-int2" {
		t.Errorf("expected br-int2, got %q", cfg.IntegrationBridge)
	}
	if cfg.TunnelBridge != "br-tun" {
		t.Errorf("expected br-tun, got %q", cfg.TunnelBridge)
	}
	if !cfg.UseVethInterconnection {
		t.Error("expected use_veth_interconnection=true")
	}
	if cfg.OfInterface != "ovs-ofctl" {
		t.Errorf("expected ovs-ofctl, got %q", cfg.OfInterface)
	}
}

func TestLoadBytesDefaultsIntegrationBridge(t *testing.T) {
	cfg, err := LoadBytes("test.hcl", []byte(`local_ip = "10.0.0.5"`))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if cfg.IntegrationBridge != "br-int" {
		t.Errorf("expected default br-int, got %q", cfg.IntegrationBridge)
	}
}

func TestLoadBytesMalformed(t *testing.T) {
	_, err := LoadBytes("test.hcl", []byte(`integration_bridge = `))
	if err == nil {
		t.Fatal("expected decode error for malformed HCL")
	}
}
