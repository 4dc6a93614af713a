// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/stackforge/networking-ovs-firewall/internal/errors"
	"github.com/stackforge/networking-ovs-firewall/internal/logging"
	"github.com/stackforge/networking-ovs-firewall/internal/metrics"
)

// phaseClear, phaseScaffold and phaseRules name the stage a failure
// happened in, attached to every surfaced error as the "phase"
// attribute.
const (
	phaseClear    = "clear"
	phaseScaffold = "scaffold"
	phaseRules    = "rules"
)

// Driver is the orchestrator: it tracks ports, security groups and
// group memberships, and compiles them into BridgeClient calls. All
// mutation entry points are serialized by a coarse mutex, matching a
// host agent that may call in from more than one goroutine even though
// the reference agent itself is single-threaded.
type Driver struct {
	mu sync.Mutex

	bridge       BridgeClient
	logger       *logging.Logger
	metrics      *metrics.Driver
	outboundPort int

	rules    *RuleCompiler
	scaffold *PortProgrammer

	catalog *GroupCatalog
	ports   map[string]Port

	deferDepth int
	dirty      map[string]struct{}
}

// NewDriver wires a Driver to its BridgeClient. outboundPort is the
// integration-to-physical patch port ofport used by the table-12
// broadcast punt (Phase E).
func NewDriver(bridge BridgeClient, logger *logging.Logger, metricsDriver *metrics.Driver, outboundPort int) *Driver {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	if metricsDriver == nil {
		metricsDriver = metrics.NewDriver(nil)
	}
	return &Driver{
		bridge:       bridge,
		logger:       logger,
		metrics:      metricsDriver,
		outboundPort: outboundPort,
		rules:        NewRuleCompiler(),
		scaffold:     NewPortProgrammer(),
		catalog:      NewGroupCatalog(),
		ports:        make(map[string]Port),
		dirty:        make(map[string]struct{}),
	}
}

// Ports returns the devices currently registered, regardless of
// whether they have been (re)applied yet.
func (d *Driver) Ports() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.ports))
	for dev := range d.ports {
		out = append(out, dev)
	}
	return out
}

// FilteredPorts returns a snapshot of the ports currently programmed.
func (d *Driver) FilteredPorts() map[string]Port {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Port, len(d.ports))
	for dev, p := range d.ports {
		out[dev] = p
	}
	return out
}

// PreparePortFilter attaches the scaffold and rule flows for port. It
// is idempotent: calling it twice with the same description produces
// the identical sequence of BridgeClient calls, since Phase A always
// clears whatever this device previously held first.
func (d *Driver) PreparePortFilter(ctx context.Context, port Port) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyLocked(ctx, port)
}

// UpdatePortFilter deletes the device's previous flows then
// re-applies, honoring whatever rule/member state is current.
func (d *Driver) UpdatePortFilter(ctx context.Context, port Port) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyLocked(ctx, port)
}

// RemovePortFilter deletes every flow bound to device and forgets it.
func (d *Driver) RemovePortFilter(ctx context.Context, device string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := validateDeviceID(device); err != nil {
		return err
	}
	port, ok := d.ports[device]
	if !ok {
		return nil
	}
	if err := d.clearLocked(ctx, port); err != nil {
		return d.attrErr(err, device, phaseClear)
	}
	delete(d.ports, device)
	delete(d.dirty, device)
	d.metrics.FilteredPorts.Set(float64(len(d.ports)))
	return nil
}

// UpdateSecurityGroupRules replaces the rule set for sg and marks
// dependent ports dirty, returning the affected devices. With the
// batching window open, affected ports are recorded but not
// reprogrammed until FilterDeferApplyOff.
func (d *Driver) UpdateSecurityGroupRules(ctx context.Context, sg SGID, rules []SecurityGroupRule) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.warnIfNotUUID(sg)
	d.catalog.Rules[sg] = rules
	affected := d.portsUsingGroupLocked(sg)
	return d.markDirtyOrApply(ctx, affected)
}

// UpdateSecurityGroupMembers replaces sg's membership and marks any
// port whose rules reference sg as remote dirty, based on the delta
// against the previous snapshot.
func (d *Driver) UpdateSecurityGroupMembers(ctx context.Context, sg SGID, members GroupMembers) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.warnIfNotUUID(sg)
	d.catalog.PreMembers[sg] = d.catalog.Members[sg]
	d.catalog.Members[sg] = members

	if membersEqual(d.catalog.PreMembers[sg], members) {
		return nil, nil
	}

	affected := d.portsReferencingRemoteLocked(sg)
	return d.markDirtyOrApply(ctx, affected)
}

// FilterDeferApplyOn opens a batching window: subsequent group/member
// mutations accumulate instead of reprogramming immediately.
func (d *Driver) FilterDeferApplyOn() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deferDepth++
}

// FilterDeferApplyOff closes the batching window and performs one
// consolidated reprogramming per port marked dirty since the matching
// FilterDeferApplyOn.
func (d *Driver) FilterDeferApplyOff(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.deferDepth > 0 {
		d.deferDepth--
	}
	if d.deferDepth > 0 {
		return nil
	}

	var firstErr error
	for dev := range d.dirty {
		port, ok := d.ports[dev]
		if !ok {
			continue
		}
		if err := d.applyLocked(ctx, port); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.dirty = make(map[string]struct{})
	return firstErr
}

func (d *Driver) markDirtyOrApply(ctx context.Context, devices []string) ([]string, error) {
	if d.deferDepth > 0 {
		for _, dev := range devices {
			d.dirty[dev] = struct{}{}
		}
		return devices, nil
	}
	var firstErr error
	for _, dev := range devices {
		port, ok := d.ports[dev]
		if !ok {
			continue
		}
		if err := d.applyLocked(ctx, port); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return devices, firstErr
}

func (d *Driver) portsUsingGroupLocked(sg SGID) []string {
	var out []string
	for dev, p := range d.ports {
		for _, g := range p.SecurityGroups {
			if g == sg {
				out = append(out, dev)
				break
			}
		}
	}
	return out
}

func (d *Driver) portsReferencingRemoteLocked(sg SGID) []string {
	seen := map[string]struct{}{}
	var out []string
	for dev, p := range d.ports {
		for _, g := range p.SecurityGroups {
			for _, rule := range d.catalog.Rules[g] {
				if rule.RemoteGroupID == sg {
					if _, ok := seen[dev]; !ok {
						seen[dev] = struct{}{}
						out = append(out, dev)
					}
				}
			}
		}
	}
	return out
}

// applyLocked runs the full clear -> scaffold -> rules sequence for
// port. Any failure aborts programming of this port and is returned;
// whatever was already installed is left for the next
// UpdatePortFilter to clean via Phase A.
func (d *Driver) applyLocked(ctx context.Context, port Port) error {
	if err := validateDeviceID(port.Device); err != nil {
		return err
	}
	if port.OFPort == 0 {
		return errors.Attr(errors.Errorf(errors.KindInvariant, "port %s described without an ofport", port.Device), "device_id", port.Device)
	}

	if err := d.clearLocked(ctx, port); err != nil {
		return d.attrErr(err, port.Device, phaseClear)
	}

	// clearLocked above already issued the scaffold's three Phase A
	// deletes (dl_src, dl_dst, in_port); Scaffold's own delete specs
	// are identical and must not be replayed.
	_, flows := d.scaffold.Scaffold(port, d.outboundPort)
	for _, flow := range flows {
		if err := d.addFlow(ctx, flow); err != nil {
			return d.attrErr(err, port.Device, phaseScaffold)
		}
	}

	for _, flow := range d.compileRulesLocked(port) {
		if err := d.addFlow(ctx, flow); err != nil {
			return d.attrErr(err, port.Device, phaseRules)
		}
	}

	d.ports[port.Device] = port
	d.metrics.FilteredPorts.Set(float64(len(d.ports)))
	return nil
}

func (d *Driver) clearLocked(ctx context.Context, port Port) error {
	mac := port.MAC.String()
	deletes := []DeleteSpec{
		{"dl_src": mac},
		{"dl_dst": mac},
		{"in_port": fmtInt(port.OFPort)},
	}
	for _, del := range deletes {
		if err := d.bridge.DeleteFlows(ctx, del); err != nil {
			return errors.Wrap(err, errors.KindTransport, "clear failed")
		}
		d.metrics.FlowsDeleted.Inc()
	}
	return nil
}

func (d *Driver) compileRulesLocked(port Port) []CompiledFlow {
	var out []CompiledFlow
	for _, sg := range port.SecurityGroups {
		for _, rule := range d.catalog.Rules[sg] {
			var malformed string
			switch {
			case rule.Protocol != "" && rule.Protocol != ProtoTCP && rule.Protocol != ProtoUDP &&
				rule.Protocol != ProtoICMP && rule.Protocol != ProtoICMPv6 && rule.Protocol != ProtoIP:
				malformed = "unknown protocol"
			case (rule.Protocol == ProtoTCP || rule.Protocol == ProtoUDP) && (rule.PortRangeMin == nil) != (rule.PortRangeMax == nil):
				malformed = "incomplete port range"
			}
			if malformed != "" {
				d.logger.Warn("skipping malformed security group rule", "device_id", port.Device, "sg_id", string(sg), "reason", malformed)
				continue
			}
			out = append(out, d.rules.Compile(rule, port, d.catalog)...)
		}
	}
	return out
}

func (d *Driver) addFlow(ctx context.Context, flow CompiledFlow) error {
	if err := d.bridge.AddFlow(ctx, flow.Table, flow.Priority, flow.Match, flow.Actions); err != nil {
		return errors.Wrap(err, errors.KindTransport, "add_flow failed")
	}
	d.metrics.FlowsAdded.Inc()
	return nil
}

func (d *Driver) attrErr(err error, device, phase string) error {
	d.logger.Error("port filter programming failed", "device_id", device, "phase", phase, "err", err)
	d.metrics.CompileErrors.WithLabelValues(phase).Inc()
	return errors.Attr(errors.Attr(err, "device_id", device), "phase", phase)
}

func (d *Driver) warnIfNotUUID(sg SGID) {
	if _, err := uuid.Parse(string(sg)); err != nil {
		d.logger.Debug("security group id is not a UUID", "sg_id", string(sg))
	}
}

func fmtInt(v int) string {
	return strconv.Itoa(v)
}
