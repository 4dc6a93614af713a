// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/mdlayher/ndp"
	"golang.org/x/net/ipv6"
)

// Fixed pipeline tables: 0 is the anti-spoof entry, 1 and 2 are
// hand-offs, 11 is egress policy, 12 is ingress policy.
const (
	TableSpoofCheck = 0
	TableEgressHop  = 1
	TableIngressHop = 2
	TableEgress     = 11
	TableIngress    = 12
)

const (
	priorityAntiSpoof  = 100
	priorityArp        = 60
	priorityHopDst     = 100
	priorityHop        = 90
	priorityBypass     = 50
	priorityDHCPPermit = 50
	priorityICMPPass   = 50
	priorityDHCPReply  = 45
	priorityNDReply    = 45
	priorityDefault    = 40
	priorityDHCPDrop   = 40
	priorityPunt       = 10
	priorityRule       = 30
	priorityLearnTCPUDP = 70
	priorityLearnIP     = 60
)

// learnIdleTimeout and learnHardTimeout are the fixed timeouts stamped
// into every learn() reverse-flow action; the datapath is the only
// thing that ever expires them.
const (
	learnIdleTimeout = 30
	learnHardTimeout = 1800
)

// DHCPv4 client/server ports, per RFC 2131.
const (
	dhcpv4ServerPort = dhcpv4.ServerPort
	dhcpv4ClientPort = dhcpv4.ClientPort
)

// DHCPv6 client/server ports, per RFC 8415.
const (
	dhcpv6ServerPort = dhcpv6.DefaultServerPort
	dhcpv6ClientPort = dhcpv6.DefaultClientPort
)

// icmpv6NDTypes are the Neighbor Discovery and Multicast Listener
// message types a VIF must always be able to receive, per RFC 4861 and
// RFC 2710. Router solicitation/advertisement (133/134) are handled by
// the uplink, not punted back to the guest.
var icmpv6NDTypes = []int{
	int(ipv6.ICMPTypeMulticastListenerQuery),
	int(ipv6.ICMPTypeMulticastListenerReport),
	int(ipv6.ICMPTypeMulticastListenerDone),
	int(ndp.ICMPTypeNeighborSolicitation),
	int(ndp.ICMPTypeNeighborAdvertisement),
}
