// Package team holds optional capability packs layered on top of the
// platform tools. Which pack is active is an explicit deployment choice;
// nothing here is discovered or loaded dynamically.
package team

import (
	"context"
	"fmt"
	"log/slog"

	"toolgate/internal/teleport"
)

// Capability names a team extension.
type Capability string

const (
	CapabilityNone Capability = "none"
	CapabilityFlux Capability = "flux"
)

// Extension is a team capability pack. The MCP layer inspects the concrete
// type to register its tools.
type Extension interface {
	Capability() Capability
}

// RemoteRunner executes a command on a cluster node. *teleport.Client
// satisfies this.
type RemoteRunner interface {
	RunCommand(ctx context.Context, req teleport.RunRequest) *teleport.RunResult
}

// New returns the extension for the configured capability, or nil when no
// extension is enabled.
func New(capability string, remote RemoteRunner, cfg FluxConfig, logger *slog.Logger) (Extension, error) {
	switch Capability(capability) {
	case "", CapabilityNone:
		return nil, nil
	case CapabilityFlux:
		return NewFlux(remote, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown team capability %q", capability)
	}
}
