// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

// RuleCompiler translates one SecurityGroupRule, bound to one Port,
// into the concrete flows the bridge is asked to add.
type RuleCompiler struct {
	flows FlowComposer
	masks PortBitmaskCompiler
}

// NewRuleCompiler returns a ready-to-use compiler.
func NewRuleCompiler() *RuleCompiler {
	return &RuleCompiler{}
}

// Compile expands rule against port, using cat to resolve any
// remote-group reference. It returns one CompiledFlow per concrete
// match the rule decomposes into; an empty remote-group expansion
// yields no flows at all.
func (rc *RuleCompiler) Compile(rule SecurityGroupRule, port Port, cat *GroupCatalog) []CompiledFlow {
	table := TableEgress
	if rule.Direction == Ingress {
		table = TableIngress
	}

	base := map[string]string{}
	if rule.Direction == Ingress {
		base["dl_dst"] = port.MAC.String()
		if ip, ok := port.FixedIPs[rule.Ethertype]; ok {
			base["nw_dst"] = ip.String()
		}
	} else {
		base["dl_src"] = port.MAC.String()
		if ip, ok := port.FixedIPs[rule.Ethertype]; ok {
			base["nw_src"] = ip.String()
		}
	}

	peerField := "nw_src"
	if rule.Direction == Egress {
		peerField = "nw_dst"
	}

	peerPrefixes := rc.peerPrefixes(rule, cat)
	if rule.RemoteGroupID != "" && len(peerPrefixes) == 0 {
		return nil
	}
	if len(peerPrefixes) == 0 {
		peerPrefixes = []string{""}
	}

	var out []CompiledFlow
	for _, prefix := range peerPrefixes {
		match := cloneMatch(base)
		if prefix != "" {
			match[peerField] = prefix
		}
		out = append(out, rc.compileProtocols(rule, match, port, table)...)
	}
	return out
}

func (rc *RuleCompiler) peerPrefixes(rule SecurityGroupRule, cat *GroupCatalog) []string {
	switch {
	case rule.RemoteGroupID != "":
		var prefixes []string
		for _, ip := range membersFor(cat, rule.RemoteGroupID, rule.Ethertype) {
			prefixes = append(prefixes, ipPrefix(ip, rule.Ethertype))
		}
		return prefixes
	case rule.Direction == Ingress && rule.SourceIPPrefix != "":
		return []string{rule.SourceIPPrefix}
	case rule.Direction == Egress && rule.DestIPPrefix != "":
		return []string{rule.DestIPPrefix}
	default:
		return nil
	}
}

func (rc *RuleCompiler) compileProtocols(rule SecurityGroupRule, match map[string]string, port Port, table int) []CompiledFlow {
	switch rule.Protocol {
	case "":
		var out []CompiledFlow
		for _, proto := range []Protocol{ProtoTCP, ProtoUDP, ProtoIP} {
			learnPriority := priorityLearnIP
			if proto != ProtoIP {
				learnPriority = priorityLearnTCPUDP
			}
			out = append(out, rc.flow(rule, match, port, table, proto, learnPriority, nil, nil))
		}
		return out
	case ProtoTCP, ProtoUDP:
		return rc.compilePorts(rule, match, port, table)
	case ProtoICMP, ProtoICMPv6:
		return []CompiledFlow{rc.flow(rule, match, port, table, rule.Protocol, priorityLearnIP, rule.PortRangeMin, rule.PortRangeMax)}
	default:
		return []CompiledFlow{rc.flow(rule, match, port, table, rule.Protocol, priorityLearnIP, nil, nil)}
	}
}

func (rc *RuleCompiler) compilePorts(rule SecurityGroupRule, match map[string]string, port Port, table int) []CompiledFlow {
	portField := "tcp_dst"
	if rule.Protocol == ProtoUDP {
		portField = "udp_dst"
	}

	if rule.PortRangeMin == nil && rule.PortRangeMax == nil {
		return []CompiledFlow{rc.flow(rule, match, port, table, rule.Protocol, priorityLearnIP, nil, nil)}
	}

	min, max := *rule.PortRangeMin, *rule.PortRangeMax
	if min == max {
		m := cloneMatch(match)
		m[portField] = HexPort(min)
		return []CompiledFlow{rc.flowWithMatch(rule, m, port, table, rule.Protocol, priorityLearnIP, nil, nil)}
	}

	masks := rc.masks.PortRuleMasking(uint16(min), uint16(max))
	var out []CompiledFlow
	for _, mask := range masks {
		m := cloneMatch(match)
		m[portField] = mask
		out = append(out, rc.flowWithMatch(rule, m, port, table, rule.Protocol, priorityLearnIP, nil, nil))
	}
	return out
}

func (rc *RuleCompiler) flow(rule SecurityGroupRule, match map[string]string, port Port, table int, proto Protocol, learnPriority int, icmpType, icmpCode *int) CompiledFlow {
	return rc.flowWithMatch(rule, cloneMatch(match), port, table, proto, learnPriority, icmpType, icmpCode)
}

func (rc *RuleCompiler) flowWithMatch(rule SecurityGroupRule, match map[string]string, port Port, table int, proto Protocol, learnPriority int, icmpType, icmpCode *int) CompiledFlow {
	match["proto"] = rc.flows.ProtoMatchValue(proto)
	return CompiledFlow{
		Table:    table,
		Priority: priorityRule,
		Match:    match,
		Actions:  rc.flows.LearnAction(rule.Direction, proto, learnPriority, port.OFPort, icmpType, icmpCode),
	}
}

func cloneMatch(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
