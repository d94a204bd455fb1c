package sweep

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"

	"github.com/dualpath/dualping/pkg/probe"
)

const (
	// DefaultConcurrency is the per-network bound on probes in flight
	DefaultConcurrency = 10
	// DefaultProbeTimeout matches the classic ping command timeout
	DefaultProbeTimeout = 2 * time.Second
)

// Options bounds a sweep.
type Options struct {
	// Concurrency is the maximum number of probes in flight per network.
	// Bounding this protects local sockets and avoids flooding the
	// subnet, which could itself cause false-negative congestion drops.
	Concurrency int
	// ProbeTimeout is the hard latency bound for a single probe.
	ProbeTimeout time.Duration
}

func (options Options) withDefaults() Options {
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = DefaultProbeTimeout
	}
	return options
}

// VerdictSet maps canonical address strings to the verdict recorded for
// them on one network. After Run returns it contains exactly one entry
// per input address and is not mutated further.
type VerdictSet map[string]probe.Verdict

// Run probes every address exactly once on the given network, with at
// most options.Concurrency probes in flight. The caller bounds total
// wall-clock time through ctx: once ctx is done no new probes are
// dispatched, in-flight probes are abandoned rather than awaited, and
// every address without a recorded verdict is backfilled as Unreachable.
// Partial completion is a valid result, not an error; individual
// Indeterminate verdicts never abort the sweep.
func Run(ctx context.Context, prober probe.Prober, network probe.Network, ips []net.IP, options Options) (VerdictSet, error) {
	options = options.withDefaults()

	verdicts := mapsutil.NewSyncLockMap[string, *probe.Verdict]()

	awg, err := syncutil.New(syncutil.WithSize(options.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	for _, ip := range ips {
		select {
		case <-ctx.Done():
			goto done
		default:
		}

		awg.Add()
		go func(targetIP net.IP) {
			defer awg.Done()

			verdict := prober.Probe(ctx, targetIP, network, options.ProbeTimeout)
			_ = verdicts.Set(targetIP.String(), &verdict)
		}(ip)
	}

done:
	// Wait for in-flight probes, but never past the sweep deadline:
	// stragglers are abandoned and their addresses backfilled below
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		awg.Wait()
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		// Freeze the collection before reading it out, so a straggler
		// finishing after the deadline cannot slip its verdict into the
		// result; its Set fails with ErrReadOnly and is discarded
		verdicts.Lock()
	}

	// Every address gets exactly one verdict; a missing entry would be a
	// contract violation, so undispatched and abandoned addresses are
	// recorded as Unreachable here
	result := make(VerdictSet, len(ips))
	for _, ip := range ips {
		key := ip.String()
		if verdict, ok := verdicts.Get(key); ok {
			result[key] = *verdict
			continue
		}
		result[key] = probe.Verdict{IP: ip, Outcome: probe.Unreachable}
	}

	return result, nil
}

// RunBoth sweeps the two networks concurrently with independent
// concurrency gates, so a slow or failing sweep on one network never
// blocks or corrupts the other's verdicts.
func RunBoth(ctx context.Context, prober probe.Prober, ipsA, ipsB []net.IP, options Options) (VerdictSet, VerdictSet, error) {
	var wg sync.WaitGroup
	var verdictsA, verdictsB VerdictSet
	var errA, errB error

	wg.Add(2)
	go func() {
		defer wg.Done()
		verdictsA, errA = Run(ctx, prober, probe.NetworkA, ipsA, options)
	}()
	go func() {
		defer wg.Done()
		verdictsB, errB = Run(ctx, prober, probe.NetworkB, ipsB, options)
	}()
	wg.Wait()

	if errA != nil {
		return nil, nil, errA
	}
	if errB != nil {
		return nil, nil, errB
	}
	return verdictsA, verdictsB, nil
}
