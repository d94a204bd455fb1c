// Package sweep schedules liveness probes for the addresses of both
// redundant networks under two explicit bounds: a per-network limit on
// probes in flight and a caller-supplied wall-clock deadline.
//
// The scheduler is idempotent and order-independent by construction:
// verdicts land in a map keyed by canonical address, so the order in
// which probes complete never affects the result. When the deadline
// expires mid-sweep the remaining addresses are reported Unreachable and
// the partial verdict set is returned as a valid outcome.
package sweep
