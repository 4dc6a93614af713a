// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import "context"

// BridgeClient is the external collaborator that actually talks to the
// integration bridge, over OVSDB/ofctl or whatever transport the host
// agent wires up. The driver never caches what the bridge holds; this
// interface is the single authoritative mediator for tables 0,1,2,11,12.
type BridgeClient interface {
	AddFlow(ctx context.Context, table, priority int, match map[string]string, actions string) error
	DeleteFlows(ctx context.Context, match DeleteSpec) error
	GetVifPortByID(ctx context.Context, deviceID string) (*VifPort, error)
}
