package launch

import (
	"errors"
	"fmt"

	"mcp-fleet/pkg/registry"
)

// Topology is the deployment pattern governing which resources a server's
// launch needs. It is a closed enum: every topology-dependent computation
// in this package and its consumers switches over it exhaustively.
type Topology int

const (
	// TopologyAPIBased servers need credentials only.
	TopologyAPIBased Topology = iota
	// TopologyMountBased servers need host directory bindings.
	TopologyMountBased
	// TopologyPrivileged servers need host-level resources: control-plane
	// sockets, host networks, credential directories.
	TopologyPrivileged
	// TopologyStandalone servers need no external inputs.
	TopologyStandalone
	// TopologyRemote servers run nowhere locally; a proxy bridges to a
	// hosted endpoint.
	TopologyRemote
)

// ErrUnknownTopology marks a server_type value outside the five recognized
// tags. Fatal to that one server, never to the run.
var ErrUnknownTopology = errors.New("unknown topology")

// Classify maps a registry entry to its topology. There is no default: an
// unrecognized tag is a configuration error.
func Classify(def registry.ServerDefinition) (Topology, error) {
	switch def.ServerType {
	case registry.TopologyAPIBased:
		return TopologyAPIBased, nil
	case registry.TopologyMountBased:
		return TopologyMountBased, nil
	case registry.TopologyPrivileged:
		return TopologyPrivileged, nil
	case registry.TopologyStandalone:
		return TopologyStandalone, nil
	case registry.TopologyRemote:
		return TopologyRemote, nil
	default:
		return 0, fmt.Errorf("%w: server %s declares server_type %q", ErrUnknownTopology, def.ID, def.ServerType)
	}
}

func (t Topology) String() string {
	switch t {
	case TopologyAPIBased:
		return registry.TopologyAPIBased
	case TopologyMountBased:
		return registry.TopologyMountBased
	case TopologyPrivileged:
		return registry.TopologyPrivileged
	case TopologyStandalone:
		return registry.TopologyStandalone
	case TopologyRemote:
		return registry.TopologyRemote
	default:
		return "unknown"
	}
}
