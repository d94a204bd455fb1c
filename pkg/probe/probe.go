package probe

import (
	"context"
	"encoding/json"
	"net"
	"time"
)

// Network identifies one of the two redundant networks. Exactly two
// values exist per invocation.
type Network int

const (
	NetworkA Network = iota
	NetworkB
)

func (n Network) String() string {
	switch n {
	case NetworkA:
		return "network-a"
	case NetworkB:
		return "network-b"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the network tag as its name in reports
func (n Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// Outcome is the classification of a single probe.
type Outcome int

const (
	// Unreachable means the probe completed but no reply arrived within
	// the timeout. A timed-out probe is Unreachable, not an error.
	Unreachable Outcome = iota
	// Reachable means an echo reply was received.
	Reachable
	// Indeterminate means the probe infrastructure itself failed
	// (permission denied, local interface down, routing failure). It is
	// never collapsed into Unreachable.
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Verdict is the result of probing a single address on a single network.
type Verdict struct {
	IP      net.IP
	Outcome Outcome
	RTT     time.Duration // Round-trip time, set only for Reachable
	Reason  string        // Diagnostic, set only for Indeterminate
}

// Prober sends a single liveness probe to an address on one of the two
// networks. Implementations must treat timeout as a hard upper bound on
// latency, classify a missing reply as Unreachable and report transport
// failures as Indeterminate with a reason. Probe never returns an error:
// every condition is carried as data in the Verdict so one bad address
// can never abort a sweep.
type Prober interface {
	Probe(ctx context.Context, ip net.IP, network Network, timeout time.Duration) Verdict
}
