// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import "fmt"

// PortProgrammer builds the fixed scaffold installed by
// prepare_port_filter: anti-spoof, DHCP/ND/ARP exceptions, default
// drop, and table chaining. Order is contractual; Deletes always
// precede Flows.
type PortProgrammer struct {
	flows FlowComposer
}

// NewPortProgrammer returns a ready-to-use programmer.
func NewPortProgrammer() *PortProgrammer {
	return &PortProgrammer{}
}

// Scaffold returns the delete-then-add sequence for port, given the
// outbound patch port ofport used to punt broadcast traffic from
// table 12 toward the physical uplink.
func (pp *PortProgrammer) Scaffold(port Port, outboundPort int) (deletes []DeleteSpec, flows []CompiledFlow) {
	mac := port.MAC.String()

	deletes = []DeleteSpec{
		{"dl_src": mac},
		{"dl_dst": mac},
		{"in_port": fmt.Sprintf("%d", port.OFPort)},
	}

	flows = append(flows, pp.antiSpoof(port, mac)...)
	flows = append(flows, pp.egressServiceExceptions(port, mac)...)
	flows = append(flows, pp.defaultDropAndArp(port, mac)...)
	flows = append(flows, pp.ingressServiceExceptions(port, mac, outboundPort)...)
	flows = append(flows, pp.tableHandoffs(mac)...)
	return deletes, flows
}

// Phase B: anti-spoofing, egress entry (table 0 -> 1).
func (pp *PortProgrammer) antiSpoof(port Port, mac string) []CompiledFlow {
	out := []CompiledFlow{{
		Table:    TableSpoofCheck,
		Priority: priorityAntiSpoof,
		Match: map[string]string{
			"proto":   "ip",
			"in_port": fmt.Sprintf("%d", port.OFPort),
			"dl_src":  mac,
			"nw_src":  "0.0.0.0",
		},
		Actions: "goto_table:1",
	}}

	for _, eth := range []Ethertype{IPv4, IPv6} {
		ip, ok := port.FixedIPs[eth]
		if !ok {
			continue
		}
		out = append(out, CompiledFlow{
			Table:    TableSpoofCheck,
			Priority: priorityAntiSpoof,
			Match: map[string]string{
				"proto":   "ip",
				"in_port": fmt.Sprintf("%d", port.OFPort),
				"dl_src":  mac,
				"nw_src":  ip.String(),
			},
			Actions: fmt.Sprintf("mod_vlan_vid:%d,goto_table:1", port.ZoneID),
		})
	}
	return out
}

// Phase C: egress table 11 service exceptions.
func (pp *PortProgrammer) egressServiceExceptions(port Port, mac string) []CompiledFlow {
	inPort := fmt.Sprintf("%d", port.OFPort)
	var out []CompiledFlow

	for _, pair := range [][2]int{{dhcpv4ServerPort, dhcpv4ClientPort}, {dhcpv6ServerPort, dhcpv6ClientPort}} {
		out = append(out, CompiledFlow{
			Table:    TableEgress,
			Priority: priorityDHCPDrop,
			Match: map[string]string{
				"proto":   "udp",
				"in_port": inPort,
				"udp_src": fmt.Sprintf("%d", pair[0]),
				"udp_dst": fmt.Sprintf("%d", pair[1]),
			},
			Actions: "drop",
		})
	}

	for _, pair := range [][2]int{{dhcpv4ClientPort, dhcpv4ServerPort}, {dhcpv6ClientPort, dhcpv6ServerPort}} {
		out = append(out, CompiledFlow{
			Table:    TableEgress,
			Priority: priorityDHCPPermit,
			Match: map[string]string{
				"dl_src":  mac,
				"in_port": inPort,
				"proto":   "udp",
				"udp_src": fmt.Sprintf("%d", pair[0]),
				"udp_dst": fmt.Sprintf("%d", pair[1]),
			},
			Actions: "normal",
		})
	}

	for _, proto := range []string{"icmp", "ipv6,nw_proto=58"} {
		out = append(out, CompiledFlow{
			Table:    TableEgress,
			Priority: priorityICMPPass,
			Match: map[string]string{
				"dl_src":  mac,
				"in_port": inPort,
				"proto":   proto,
			},
			Actions: "normal",
		})
	}
	return out
}

// Phase D: default drop & ARP bypass.
func (pp *PortProgrammer) defaultDropAndArp(port Port, mac string) []CompiledFlow {
	return []CompiledFlow{
		{
			Table:    TableSpoofCheck,
			Priority: priorityDefault,
			Match:    map[string]string{"proto": "ip"},
			Actions:  "drop",
		},
		{
			Table:    TableSpoofCheck,
			Priority: priorityArp,
			Match:    map[string]string{"proto": "arp", "dl_dst": mac},
			Actions:  fmt.Sprintf("strip_vlan,output:%d", port.OFPort),
		},
		{
			Table:    TableSpoofCheck,
			Priority: priorityBypass,
			Match:    map[string]string{"dl_dst": mac},
			Actions:  "resubmit(0,2)",
		},
	}
}

// Phase E: ingress table 12 service exceptions.
func (pp *PortProgrammer) ingressServiceExceptions(port Port, mac string, outboundPort int) []CompiledFlow {
	var out []CompiledFlow

	for _, pair := range [][2]int{{dhcpv4ServerPort, dhcpv4ClientPort}, {dhcpv6ServerPort, dhcpv6ClientPort}} {
		out = append(out, CompiledFlow{
			Table:    TableIngress,
			Priority: priorityDHCPReply,
			Match: map[string]string{
				"proto":   "udp",
				"dl_dst":  mac,
				"udp_src": fmt.Sprintf("%d", pair[0]),
				"udp_dst": fmt.Sprintf("%d", pair[1]),
			},
			Actions: fmt.Sprintf("strip_vlan,output:%d", port.OFPort),
		})
	}

	for _, icmpType := range icmpv6NDTypes {
		out = append(out, CompiledFlow{
			Table:    TableIngress,
			Priority: priorityNDReply,
			Match: map[string]string{
				"proto":     "ipv6,nw_proto=58",
				"dl_dst":    mac,
				"icmp_type": fmt.Sprintf("%d", icmpType),
			},
			Actions: fmt.Sprintf("strip_vlan,output:%d", port.OFPort),
		})
	}

	out = append(out, CompiledFlow{
		Table:    TableIngress,
		Priority: priorityPunt,
		Match:    map[string]string{"proto": "ip"},
		Actions:  fmt.Sprintf("mod_vlan_vid:%d,output:%d", port.ZoneID, outboundPort),
	})
	return out
}

// Phase F: table hand-offs.
func (pp *PortProgrammer) tableHandoffs(mac string) []CompiledFlow {
	return []CompiledFlow{
		{Table: TableIngressHop, Priority: priorityHopDst, Match: map[string]string{"dl_dst": mac}, Actions: "strip_vlan,resubmit(,12)"},
		{Table: TableIngressHop, Priority: priorityHop, Match: map[string]string{}, Actions: "resubmit(,12)"},
		{Table: TableEgressHop, Priority: priorityHopDst, Match: map[string]string{"dl_dst": mac}, Actions: "strip_vlan,resubmit(,11)"},
		{Table: TableEgressHop, Priority: priorityHop, Match: map[string]string{}, Actions: "resubmit(,11)"},
	}
}
