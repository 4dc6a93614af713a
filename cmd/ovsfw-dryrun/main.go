// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command ovsfw-dryrun compiles a single VIF's security-group filter
// against an in-memory bridge and renders the resulting add_flow /
// delete_flows calls, without touching a real switch. It is meant for
// verifying a rule catalog before it reaches production.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackforge/networking-ovs-firewall/internal/config"
	"github.com/stackforge/networking-ovs-firewall/internal/ovsfw"
)

func main() {
	configPath := flag.String("config", "", "Path to HCL config file (optional)")
	device := flag.String("device", "tap0", "Device id of the VIF to dry-run")
	ofport := flag.Int("ofport", 1, "OpenFlow port number of the VIF")
	mac := flag.String("mac", "fe:16:3e:00:00:01", "MAC address of the VIF")
	zone := flag.Int("zone", 1, "Tenant VLAN tag (zone id)")
	fixedIPv4 := flag.String("fixed-ipv4", "10.0.0.1", "IPv4 fixed address of the VIF")
	fixedIPv6 := flag.String("fixed-ipv6", "", "IPv6 fixed address of the VIF (optional)")
	outboundPort := flag.Int("outbound-port", 100, "Outbound patch port ofport")
	tcpPortMin := flag.Int("allow-tcp-min", 0, "Start of an ingress TCP port range to allow")
	tcpPortMax := flag.Int("allow-tcp-max", 0, "End of an ingress TCP port range to allow")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.DefaultConfig()
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	fmt.Printf("dry-running against integration bridge %q\n", cfg.IntegrationBridge)

	hwaddr, err := net.ParseMAC(*mac)
	if err != nil {
		log.Fatalf("parsing mac: %v", err)
	}

	port := ovsfw.Port{
		OFPort: *ofport,
		Device: *device,
		MAC:    hwaddr,
		ZoneID: *zone,
		FixedIPs: map[ovsfw.Ethertype]net.IP{
			ovsfw.IPv4: net.ParseIP(*fixedIPv4),
		},
	}
	if *fixedIPv6 != "" {
		port.FixedIPs[ovsfw.IPv6] = net.ParseIP(*fixedIPv6)
	}

	catalog := ovsfw.NewGroupCatalog()
	if *tcpPortMax > 0 {
		sg := ovsfw.SGID("dryrun-allow")
		min, max := *tcpPortMin, *tcpPortMax
		catalog.Rules[sg] = []ovsfw.SecurityGroupRule{{
			Ethertype:    ovsfw.IPv4,
			Direction:    ovsfw.Ingress,
			Protocol:     ovsfw.ProtoTCP,
			PortRangeMin: &min,
			PortRangeMax: &max,
		}}
		port.SecurityGroups = []ovsfw.SGID{sg}
	}

	recorder := newRecordingBridge()
	driver := ovsfw.NewDriver(recorder, nil, nil, *outboundPort)
	for sg, rules := range catalog.Rules {
		if _, err := driver.UpdateSecurityGroupRules(context.Background(), sg, rules); err != nil {
			log.Fatalf("loading rules: %v", err)
		}
	}
	if err := driver.PreparePortFilter(context.Background(), port); err != nil {
		log.Fatalf("prepare_port_filter: %v", err)
	}

	render(recorder.calls)
}

func render(calls []recordedCall) {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "kind", Width: 8},
		{Title: "table", Width: 6},
		{Title: "priority", Width: 9},
		{Title: "match / actions", Width: 90},
	}

	var rows []table.Row
	for i, c := range calls {
		detail := fmt.Sprintf("%v -> %s", c.match, c.actions)
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			c.kind,
			fmt.Sprintf("%d", c.table),
			fmt.Sprintf("%d", c.priority),
			detail,
		})
	}

	t := table.New(table.WithColumns(columns), table.WithRows(rows), table.WithFocused(false))
	style := table.DefaultStyles()
	style.Header = style.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(style)

	fmt.Println(t.View())
	fmt.Fprintf(os.Stderr, "%d bridge calls issued\n", len(calls))
}

// recordedCall is one add_flow/delete_flows call as seen by
// recordingBridge, retained in issue order for rendering.
type recordedCall struct {
	kind     string
	table    int
	priority int
	match    map[string]string
	actions  string
}

// recordingBridge is a BridgeClient that never talks to a real switch;
// it just remembers every call so the CLI can print it back.
type recordingBridge struct {
	calls []recordedCall
}

func newRecordingBridge() *recordingBridge {
	return &recordingBridge{}
}

func (b *recordingBridge) AddFlow(_ context.Context, table, priority int, match map[string]string, actions string) error {
	b.calls = append(b.calls, recordedCall{kind: "add", table: table, priority: priority, match: match, actions: actions})
	return nil
}

func (b *recordingBridge) DeleteFlows(_ context.Context, match ovsfw.DeleteSpec) error {
	b.calls = append(b.calls, recordedCall{kind: "delete", match: match})
	return nil
}

func (b *recordingBridge) GetVifPortByID(_ context.Context, deviceID string) (*ovsfw.VifPort, error) {
	return nil, fmt.Errorf("ovsfw-dryrun: no bridge connection, device %q unresolved", deviceID)
}
