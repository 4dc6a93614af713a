// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"net"

	"github.com/stackforge/networking-ovs-firewall/internal/errors"
)

// Ethertype distinguishes the IP family a rule or fixed IP belongs to.
type Ethertype string

const (
	IPv4 Ethertype = "IPv4"
	IPv6 Ethertype = "IPv6"
)

// Direction is the traffic direction a security-group rule applies to,
// named from the guest's point of view.
type Direction string

const (
	Ingress Direction = "ingress"
	Egress  Direction = "egress"
)

// Protocol is the L4 (or pseudo-L4, for icmp/ip) protocol a rule matches.
type Protocol string

const (
	ProtoTCP    Protocol = "tcp"
	ProtoUDP    Protocol = "udp"
	ProtoICMP   Protocol = "icmp"
	ProtoICMPv6 Protocol = "icmpv6"
	ProtoIP     Protocol = "ip"
)

// SGID is a security-group identifier. It is checked against the UUID
// format on ingestion; a non-UUID id is logged at debug level and
// accepted.
type SGID string

// Port is a tenant VIF attached to the integration bridge. ZoneID doubles
// as the tenant VLAN tag stamped on egress and stripped on ingress.
type Port struct {
	OFPort                    int
	Device                    string
	MAC                       net.HardwareAddr
	ZoneID                    int
	FixedIPs                  map[Ethertype]net.IP
	SecurityGroups            []SGID
	SecurityGroupSourceGroups []SGID
}

// SecurityGroupRule is one declarative policy line. At most one of
// RemoteGroupID, SourceIPPrefix, DestIPPrefix narrows the peer address;
// callers are responsible for that exclusivity (RuleCompiler does not
// enforce it, it just honors whichever is set).
type SecurityGroupRule struct {
	Ethertype      Ethertype
	Direction      Direction
	Protocol       Protocol // empty means "unspecified": tcp+udp+ip
	PortRangeMin   *int     // icmp_type when Protocol is icmp/icmpv6
	PortRangeMax   *int     // icmp_code when Protocol is icmp/icmpv6
	SourceIPPrefix string
	DestIPPrefix   string
	RemoteGroupID  SGID
}

// GroupMembers is the address membership of a security group, split by
// ethertype.
type GroupMembers struct {
	IPv4 []net.IP
	IPv6 []net.IP
}

// GroupCatalog is the in-memory catalog the orchestrator keeps rule sets
// and group memberships in. PreMembers is the previous membership
// snapshot, used to detect a no-op membership push so it doesn't
// reprogram ports that reference the group unnecessarily.
type GroupCatalog struct {
	Rules      map[SGID][]SecurityGroupRule
	Members    map[SGID]GroupMembers
	PreMembers map[SGID]GroupMembers
}

// NewGroupCatalog returns an empty catalog ready for use.
func NewGroupCatalog() *GroupCatalog {
	return &GroupCatalog{
		Rules:      make(map[SGID][]SecurityGroupRule),
		Members:    make(map[SGID]GroupMembers),
		PreMembers: make(map[SGID]GroupMembers),
	}
}

// CompiledFlow is the concrete unit RuleCompiler and PortProgrammer emit,
// and the unit FirewallDriver hands to BridgeClient.AddFlow.
type CompiledFlow struct {
	Table    int
	Priority int
	Match    map[string]string
	Actions  string
}

// DeleteSpec is the match used for a BridgeClient.DeleteFlows call.
type DeleteSpec map[string]string

// VifPort is what BridgeClient resolves a device id to.
type VifPort struct {
	PortName string
	OFPort   int
	VifID    string
	VifMAC   net.HardwareAddr
	Switch   string
}

// membersEqual reports whether a and b hold the same addresses,
// ignoring order, so UpdateSecurityGroupMembers can skip reprogramming
// ports when a membership push carries no actual delta.
func membersEqual(a, b GroupMembers) bool {
	return ipSetEqual(a.IPv4, b.IPv4) && ipSetEqual(a.IPv6, b.IPv6)
}

func ipSetEqual(a, b []net.IP) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, ip := range a {
		counts[ip.String()]++
	}
	for _, ip := range b {
		counts[ip.String()]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func membersFor(cat *GroupCatalog, sg SGID, eth Ethertype) []net.IP {
	members, ok := cat.Members[sg]
	if !ok {
		return nil
	}
	if eth == IPv6 {
		return members.IPv6
	}
	return members.IPv4
}

func validateDeviceID(id string) error {
	if id == "" {
		return errors.New(errors.KindMalformed, "device id must not be empty")
	}
	return nil
}
