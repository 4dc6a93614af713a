// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"fmt"
	"net"
	"strings"
)

// FlowComposer builds the textual match and action fields the bridge
// understands. The strings it produces are an ABI the switch parses,
// so field order, trailing commas and hex formatting are load-bearing
// and must never be reformatted for readability.
type FlowComposer struct{}

type protoFragment struct {
	match    string
	destSwap string
	srcSwap  string
}

// protoFragments are the fixed per-protocol pieces of the learn()
// reverse-flow template. ip and icmp carry no port to swap.
var protoFragments = map[Protocol]protoFragment{
	ProtoTCP: {
		match:    "eth_type=0x0800,ip_proto=6",
		destSwap: "NXM_OF_TCP_DST[]=NXM_OF_TCP_SRC[],",
		srcSwap:  "NXM_OF_TCP_SRC[]=NXM_OF_TCP_DST[],",
	},
	ProtoUDP: {
		match:    "eth_type=0x0800,ip_proto=17",
		destSwap: "NXM_OF_UDP_DST[]=NXM_OF_UDP_SRC[],",
		srcSwap:  "NXM_OF_UDP_SRC[]=NXM_OF_UDP_DST[],",
	},
	ProtoIP: {
		match: "eth_type=0x0800",
	},
	ProtoICMP: {
		match: "eth_type=0x0800,ip_proto=1",
	},
}

// ProtoMatchValue is the value carried by the "proto" match field (as
// opposed to the eth_type/ip_proto fragment used inside learn()).
func (FlowComposer) ProtoMatchValue(proto Protocol) string {
	switch proto {
	case ProtoICMPv6:
		return "ipv6,nw_proto=58"
	case "":
		return "ip"
	default:
		return string(proto)
	}
}

// LearnAction builds the full "learn(...)+tail" action string installed
// on a rule flow: instantiating the reverse-flow template for proto at
// priority, with the optional icmp_type/icmp_code fields, then the
// direction-specific tail that also forwards the triggering packet.
func (FlowComposer) LearnAction(dir Direction, proto Protocol, priority, ofport int, icmpType, icmpCode *int) string {
	frag, ok := protoFragments[proto]
	if !ok {
		frag = protoFragments[ProtoIP]
	}

	// learn's own table parameter is keyed off the rule's direction, not
	// the table the rule flow itself lives in: an ingress rule installs
	// its reverse flow into the egress table (11), and an egress rule
	// installs its reverse flow into the ingress table (12).
	learnTable := TableIngress
	tail := ",resubmit(,2)"
	if dir == Ingress {
		learnTable = TableEgress
		tail = fmt.Sprintf(",strip_vlan,output:%d", ofport)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "learn(table=%d,priority=%d,idle_timeout=%d,hard_timeout=%d,",
		learnTable, priority, learnIdleTimeout, learnHardTimeout)
	b.WriteString(frag.match)
	b.WriteString(",")
	b.WriteString("NXM_OF_ETH_SRC[]=NXM_OF_ETH_DST[],")
	b.WriteString("NXM_OF_ETH_DST[]=NXM_OF_ETH_SRC[],")
	b.WriteString("NXM_OF_IP_SRC[]=NXM_OF_IP_DST[],")
	b.WriteString("NXM_OF_IP_DST[]=NXM_OF_IP_SRC[],")
	b.WriteString(frag.destSwap)
	b.WriteString(frag.srcSwap)
	if icmpType != nil {
		fmt.Fprintf(&b, "icmp_type=%d,", *icmpType)
	}
	if icmpCode != nil {
		fmt.Fprintf(&b, "icmp_code=%d,", *icmpCode)
	}
	b.WriteString("output:NXM_OF_IN_PORT[])")
	b.WriteString(tail)
	return b.String()
}

// HexPort formats a raw port number the way BridgeClient match fields
// expect: lowercase, zero-padded to 4 hex digits, no mask.
func HexPort(p int) string {
	return hex4(uint32(p))
}

func ipPrefix(ip net.IP, eth Ethertype) string {
	if eth == IPv6 {
		return ip.String() + "/128"
	}
	return ip.String() + "/32"
}
