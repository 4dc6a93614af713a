// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLearnActionIngressTCP(t *testing.T) {
	got := FlowComposer{}.LearnAction(Ingress, ProtoTCP, 60, 1, nil, nil)
	want := "learn(table=11,priority=60,idle_timeout=30,hard_timeout=1800," +
		"eth_type=0x0800,ip_proto=6," +
		"NXM_OF_ETH_SRC[]=NXM_OF_ETH_DST[],NXM_OF_ETH_DST[]=NXM_OF_ETH_SRC[]," +
		"NXM_OF_IP_SRC[]=NXM_OF_IP_DST[],NXM_OF_IP_DST[]=NXM_OF_IP_SRC[]," +
		"NXM_OF_TCP_DST[]=NXM_OF_TCP_SRC[],NXM_OF_TCP_SRC[]=NXM_OF_TCP_DST[]," +
		"output:NXM_OF_IN_PORT[]),strip_vlan,output:1"
	require.Equal(t, want, got)
}

func TestLearnActionEgressICMP(t *testing.T) {
	icmpType, icmpCode := 10, 20
	got := FlowComposer{}.LearnAction(Egress, ProtoICMP, 60, 1, &icmpType, &icmpCode)
	want := "learn(table=12,priority=60,idle_timeout=30,hard_timeout=1800," +
		"eth_type=0x0800,ip_proto=1," +
		"NXM_OF_ETH_SRC[]=NXM_OF_ETH_DST[],NXM_OF_ETH_DST[]=NXM_OF_ETH_SRC[]," +
		"NXM_OF_IP_SRC[]=NXM_OF_IP_DST[],NXM_OF_IP_DST[]=NXM_OF_IP_SRC[]," +
		"icmp_type=10,icmp_code=20," +
		"output:NXM_OF_IN_PORT[]),resubmit(,2)"
	require.Equal(t, want, got)
}

func TestProtoMatchValue(t *testing.T) {
	require.Equal(t, "ip", FlowComposer{}.ProtoMatchValue(""))
	require.Equal(t, "tcp", FlowComposer{}.ProtoMatchValue(ProtoTCP))
	require.Equal(t, "ipv6,nw_proto=58", FlowComposer{}.ProtoMatchValue(ProtoICMPv6))
}
