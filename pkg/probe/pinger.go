package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// PingOptions configures a PingProber.
type PingOptions struct {
	// Privileged uses raw ICMP sockets (requires root/CAP_NET_RAW).
	// When false UDP-based pings are used instead.
	Privileged bool
	// Retries is the number of additional echo attempts per address
	// before classifying it Unreachable.
	Retries int
	// SourceA and SourceB bind probes to the local address of the
	// respective network's interface, so each probe actually leaves
	// through the path it is supposed to measure.
	SourceA string
	SourceB string
}

// PingProber probes one address per call using ICMP echo requests.
type PingProber struct {
	options PingOptions
}

// NewPingProber creates a Prober backed by ICMP echo requests.
func NewPingProber(options PingOptions) *PingProber {
	if options.Retries < 0 {
		options.Retries = 0
	}
	return &PingProber{options: options}
}

// Probe sends a single echo request (plus configured retries) to ip
// through the given network and classifies the outcome.
func (p *PingProber) Probe(ctx context.Context, ip net.IP, network Network, timeout time.Duration) Verdict {
	var lastErr error

	for attempt := 0; attempt <= p.options.Retries; attempt++ {
		select {
		case <-ctx.Done():
			// Abandoned by the sweep deadline, counts as no reply
			return Verdict{IP: ip, Outcome: Unreachable}
		default:
		}

		pinger, err := probing.NewPinger(ip.String())
		if err != nil {
			return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to create pinger: %s", err)}
		}
		pinger.SetPrivileged(p.options.Privileged)
		pinger.Count = 1
		pinger.Timeout = timeout
		if source := p.sourceFor(network); source != "" {
			pinger.Source = source
		}

		if err := pinger.RunWithContext(ctx); err != nil {
			if ctx.Err() != nil {
				return Verdict{IP: ip, Outcome: Unreachable}
			}
			lastErr = err
			continue
		}

		stats := pinger.Statistics()
		if stats.PacketsRecv > 0 {
			return Verdict{IP: ip, Outcome: Reachable, RTT: stats.AvgRtt}
		}
	}

	if lastErr != nil {
		return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to run ping: %s", lastErr)}
	}
	return Verdict{IP: ip, Outcome: Unreachable}
}

func (p *PingProber) sourceFor(network Network) string {
	if network == NetworkB {
		return p.options.SourceB
	}
	return p.options.SourceA
}
