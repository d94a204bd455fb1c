// Package probe defines the liveness probe contract shared by the sweep
// scheduler and provides two ICMP-based implementations.
//
// A Prober answers a single question: does this address reply to an echo
// request on this network within the timeout? The answer is always a
// Verdict, never an error:
//   - Reachable: a reply arrived, RTT is recorded
//   - Unreachable: the timeout expired without a reply
//   - Indeterminate: the probe itself could not run (no permission for
//     raw sockets, local interface down, routing failure); the reason is
//     recorded so reduced confidence is visible to the caller
//
// Privilege Requirements:
// - RawProber always needs root/CAP_NET_RAW
// - PingProber can fall back to unprivileged UDP-based pings
//
// Limitations:
// - Hosts with ICMP disabled or firewalled will not respond
// - Some networks may rate-limit ICMP traffic
package probe
