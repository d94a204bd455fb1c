package diff

import (
	"bytes"
	"net"
	"net/netip"
	"sort"

	"github.com/dualpath/dualping/pkg/probe"
	"github.com/dualpath/dualping/pkg/sweep"
)

// Unknown records an address whose reachability could not be asserted on
// one network because its probe was Indeterminate there.
type Unknown struct {
	IP      net.IP        `json:"ip"`
	Network probe.Network `json:"network"`
	Reason  string        `json:"reason,omitempty"`
}

// Result is the asymmetric-reachability outcome for one invocation. All
// three lists are sorted by canonical address ordering, so identical
// verdict sets always produce byte-identical results.
type Result struct {
	// OnlyOnA holds addresses reachable on network A but not on B
	OnlyOnA []net.IP
	// OnlyOnB holds addresses reachable on network B but not on A
	OnlyOnB []net.IP
	// Unknown holds addresses excluded from the lists above because a
	// probe was Indeterminate; never silently dropped
	Unknown []Unknown
}

// Compute derives the asymmetry result from the two verdict sets. An
// address is only-on-A when it is Reachable in A and Unreachable or
// absent in B, and symmetrically for only-on-B. An address Indeterminate
// on either side is excluded from both lists and recorded once per
// indeterminate side in Unknown.
func Compute(verdictsA, verdictsB sweep.VerdictSet) Result {
	keys := make(map[string]struct{}, len(verdictsA)+len(verdictsB))
	for key := range verdictsA {
		keys[key] = struct{}{}
	}
	for key := range verdictsB {
		keys[key] = struct{}{}
	}

	var result Result
	for key := range keys {
		verdictA, inA := verdictsA[key]
		verdictB, inB := verdictsB[key]

		var ip net.IP
		if inA {
			ip = verdictA.IP
		} else {
			ip = verdictB.IP
		}

		indeterminate := false
		if inA && verdictA.Outcome == probe.Indeterminate {
			result.Unknown = append(result.Unknown, Unknown{IP: ip, Network: probe.NetworkA, Reason: verdictA.Reason})
			indeterminate = true
		}
		if inB && verdictB.Outcome == probe.Indeterminate {
			result.Unknown = append(result.Unknown, Unknown{IP: ip, Network: probe.NetworkB, Reason: verdictB.Reason})
			indeterminate = true
		}
		if indeterminate {
			continue
		}

		reachableA := inA && verdictA.Outcome == probe.Reachable
		reachableB := inB && verdictB.Outcome == probe.Reachable

		switch {
		case reachableA && !reachableB:
			result.OnlyOnA = append(result.OnlyOnA, ip)
		case reachableB && !reachableA:
			result.OnlyOnB = append(result.OnlyOnB, ip)
		}
	}

	result.sort()
	return result
}

// ComputePaired derives the asymmetry result for deployments where the
// two networks use distinct subnets and the same device holds the
// address at the same position in each pool (e.g. 192.168.1.17 on A and
// 192.168.2.17 on B). Pools are paired positionally; a pair is
// asymmetric when exactly one side is Reachable, and Indeterminate on
// either side sends both members to Unknown. Tail addresses of the
// longer pool are diffed against absence.
func ComputePaired(ipsA, ipsB []net.IP, verdictsA, verdictsB sweep.VerdictSet) Result {
	count := len(ipsA)
	if len(ipsB) > count {
		count = len(ipsB)
	}

	var result Result
	for i := 0; i < count; i++ {
		var verdictA, verdictB probe.Verdict
		var inA, inB bool

		if i < len(ipsA) {
			verdictA, inA = verdictsA[ipsA[i].String()]
		}
		if i < len(ipsB) {
			verdictB, inB = verdictsB[ipsB[i].String()]
		}

		indeterminate := false
		if inA && verdictA.Outcome == probe.Indeterminate {
			result.Unknown = append(result.Unknown, Unknown{IP: verdictA.IP, Network: probe.NetworkA, Reason: verdictA.Reason})
			indeterminate = true
		}
		if inB && verdictB.Outcome == probe.Indeterminate {
			result.Unknown = append(result.Unknown, Unknown{IP: verdictB.IP, Network: probe.NetworkB, Reason: verdictB.Reason})
			indeterminate = true
		}
		if indeterminate {
			continue
		}

		reachableA := inA && verdictA.Outcome == probe.Reachable
		reachableB := inB && verdictB.Outcome == probe.Reachable

		switch {
		case reachableA && !reachableB:
			result.OnlyOnA = append(result.OnlyOnA, verdictA.IP)
		case reachableB && !reachableA:
			result.OnlyOnB = append(result.OnlyOnB, verdictB.IP)
		}
	}

	result.sort()
	return result
}

func (r *Result) sort() {
	sort.Slice(r.OnlyOnA, func(i, j int) bool {
		return compareIP(r.OnlyOnA[i], r.OnlyOnA[j]) < 0
	})
	sort.Slice(r.OnlyOnB, func(i, j int) bool {
		return compareIP(r.OnlyOnB[i], r.OnlyOnB[j]) < 0
	})
	sort.Slice(r.Unknown, func(i, j int) bool {
		if c := compareIP(r.Unknown[i].IP, r.Unknown[j].IP); c != 0 {
			return c < 0
		}
		return r.Unknown[i].Network < r.Unknown[j].Network
	})
}

// compareIP orders addresses numerically, IPv4 before IPv6. Unmap folds
// 4-in-6 representations onto plain IPv4 so net.ParseIP output sorts
// consistently with To4 output.
func compareIP(ip1, ip2 net.IP) int {
	addr1, ok1 := netip.AddrFromSlice(ip1)
	addr2, ok2 := netip.AddrFromSlice(ip2)
	if !ok1 || !ok2 {
		return bytes.Compare(ip1, ip2)
	}
	return addr1.Unmap().Compare(addr2.Unmap())
}
