package diff

import (
	"net"
	"reflect"
	"testing"

	"github.com/dualpath/dualping/pkg/probe"
	"github.com/dualpath/dualping/pkg/sweep"
)

func makeVerdictSet(outcomes map[string]probe.Outcome) sweep.VerdictSet {
	verdicts := make(sweep.VerdictSet, len(outcomes))
	for key, outcome := range outcomes {
		verdicts[key] = probe.Verdict{IP: net.ParseIP(key), Outcome: outcome}
	}
	return verdicts
}

func ipStrings(ips []net.IP) []string {
	values := make([]string, 0, len(ips))
	for _, ip := range ips {
		values = append(values, ip.String())
	}
	return values
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		verdictsA   map[string]probe.Outcome
		verdictsB   map[string]probe.Outcome
		wantOnlyA   []string
		wantOnlyB   []string
		wantUnknown int
	}{
		{
			name: "one address down on network b",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
				"10.0.0.2": probe.Reachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
				"10.0.0.2": probe.Unreachable,
			},
			wantOnlyA: []string{"10.0.0.2"},
			wantOnlyB: []string{},
		},
		{
			name: "reachable on both appears in neither list",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
			},
			wantOnlyA: []string{},
			wantOnlyB: []string{},
		},
		{
			name: "timeout on a surfaces as only on b",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.5": probe.Unreachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.5": probe.Reachable,
			},
			wantOnlyA: []string{},
			wantOnlyB: []string{"10.0.0.5"},
		},
		{
			name: "disjoint universes diff against absence",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
				"10.0.0.2": probe.Reachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.1.1": probe.Reachable,
				"10.0.1.2": probe.Reachable,
			},
			wantOnlyA: []string{"10.0.0.1", "10.0.0.2"},
			wantOnlyB: []string{"10.0.1.1", "10.0.1.2"},
		},
		{
			name:      "empty pool on network a",
			verdictsA: map[string]probe.Outcome{},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.1": probe.Reachable,
				"10.0.0.2": probe.Reachable,
			},
			wantOnlyA: []string{},
			wantOnlyB: []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name: "indeterminate excluded from both lists",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.9": probe.Reachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.9": probe.Indeterminate,
			},
			wantOnlyA:   []string{},
			wantOnlyB:   []string{},
			wantUnknown: 1,
		},
		{
			name: "unreachable on both appears nowhere",
			verdictsA: map[string]probe.Outcome{
				"10.0.0.3": probe.Unreachable,
			},
			verdictsB: map[string]probe.Outcome{
				"10.0.0.3": probe.Unreachable,
			},
			wantOnlyA: []string{},
			wantOnlyB: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute(makeVerdictSet(tt.verdictsA), makeVerdictSet(tt.verdictsB))

			if got := ipStrings(result.OnlyOnA); !reflect.DeepEqual(got, tt.wantOnlyA) {
				t.Errorf("OnlyOnA = %v, want %v", got, tt.wantOnlyA)
			}
			if got := ipStrings(result.OnlyOnB); !reflect.DeepEqual(got, tt.wantOnlyB) {
				t.Errorf("OnlyOnB = %v, want %v", got, tt.wantOnlyB)
			}
			if len(result.Unknown) != tt.wantUnknown {
				t.Errorf("Unknown count = %d, want %d", len(result.Unknown), tt.wantUnknown)
			}

			// lists must be disjoint
			seen := make(map[string]struct{})
			for _, ip := range result.OnlyOnA {
				seen[ip.String()] = struct{}{}
			}
			for _, ip := range result.OnlyOnB {
				if _, dup := seen[ip.String()]; dup {
					t.Errorf("%s appears in both OnlyOnA and OnlyOnB", ip)
				}
			}
		})
	}
}

func TestComputeIndeterminateTaggedWithNetwork(t *testing.T) {
	verdictsA := makeVerdictSet(map[string]probe.Outcome{"10.0.0.9": probe.Reachable})
	verdictsB := sweep.VerdictSet{
		"10.0.0.9": {IP: net.ParseIP("10.0.0.9"), Outcome: probe.Indeterminate, Reason: "permission denied"},
	}

	result := Compute(verdictsA, verdictsB)

	if len(result.OnlyOnA) != 0 || len(result.OnlyOnB) != 0 {
		t.Fatalf("indeterminate address leaked into result lists: %v / %v", result.OnlyOnA, result.OnlyOnB)
	}
	if len(result.Unknown) != 1 {
		t.Fatalf("Unknown count = %d, want 1", len(result.Unknown))
	}
	unknown := result.Unknown[0]
	if unknown.IP.String() != "10.0.0.9" || unknown.Network != probe.NetworkB || unknown.Reason != "permission denied" {
		t.Errorf("Unknown = %+v, want 10.0.0.9 on network-b with reason", unknown)
	}
}

func TestComputeIndeterminateOnBothSides(t *testing.T) {
	verdictsA := makeVerdictSet(map[string]probe.Outcome{"10.0.0.9": probe.Indeterminate})
	verdictsB := makeVerdictSet(map[string]probe.Outcome{"10.0.0.9": probe.Indeterminate})

	result := Compute(verdictsA, verdictsB)

	if len(result.Unknown) != 2 {
		t.Fatalf("Unknown count = %d, want one entry per side", len(result.Unknown))
	}
	if result.Unknown[0].Network != probe.NetworkA || result.Unknown[1].Network != probe.NetworkB {
		t.Errorf("Unknown entries not ordered by network: %+v", result.Unknown)
	}
}

func TestComputeSortsNumerically(t *testing.T) {
	verdictsA := makeVerdictSet(map[string]probe.Outcome{
		"10.0.0.10": probe.Reachable,
		"10.0.0.2":  probe.Reachable,
		"10.0.0.9":  probe.Reachable,
	})
	verdictsB := makeVerdictSet(map[string]probe.Outcome{
		"10.0.0.10": probe.Unreachable,
		"10.0.0.2":  probe.Unreachable,
		"10.0.0.9":  probe.Unreachable,
	})

	result := Compute(verdictsA, verdictsB)

	// numeric ordering, not lexicographic: .9 before .10
	want := []string{"10.0.0.2", "10.0.0.9", "10.0.0.10"}
	if got := ipStrings(result.OnlyOnA); !reflect.DeepEqual(got, want) {
		t.Errorf("OnlyOnA = %v, want %v", got, want)
	}
}

func TestComputeSortsIPv4BeforeIPv6(t *testing.T) {
	verdictsA := makeVerdictSet(map[string]probe.Outcome{
		"2001:db8::1": probe.Reachable,
		"10.0.0.5":    probe.Reachable,
	})
	verdictsB := makeVerdictSet(map[string]probe.Outcome{
		"2001:db8::1": probe.Unreachable,
		"10.0.0.5":    probe.Unreachable,
	})

	result := Compute(verdictsA, verdictsB)

	want := []string{"10.0.0.5", "2001:db8::1"}
	if got := ipStrings(result.OnlyOnA); !reflect.DeepEqual(got, want) {
		t.Errorf("OnlyOnA = %v, want %v", got, want)
	}
}

func TestComputeIdempotent(t *testing.T) {
	verdictsA := makeVerdictSet(map[string]probe.Outcome{
		"10.0.0.1": probe.Reachable,
		"10.0.0.2": probe.Unreachable,
		"10.0.0.3": probe.Indeterminate,
		"10.0.0.4": probe.Reachable,
	})
	verdictsB := makeVerdictSet(map[string]probe.Outcome{
		"10.0.0.1": probe.Unreachable,
		"10.0.0.2": probe.Reachable,
		"10.0.0.3": probe.Reachable,
		"10.0.0.4": probe.Reachable,
	})

	first := Compute(verdictsA, verdictsB)
	second := Compute(verdictsA, verdictsB)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ:\n%+v\n%+v", first, second)
	}
}

func TestComputePaired(t *testing.T) {
	parse := func(values ...string) []net.IP {
		ips := make([]net.IP, 0, len(values))
		for _, value := range values {
			ips = append(ips, net.ParseIP(value))
		}
		return ips
	}

	ipsA := parse("192.168.1.1", "192.168.1.2", "192.168.1.3")
	ipsB := parse("192.168.2.1", "192.168.2.2", "192.168.2.3")

	verdictsA := makeVerdictSet(map[string]probe.Outcome{
		"192.168.1.1": probe.Reachable,
		"192.168.1.2": probe.Reachable,
		"192.168.1.3": probe.Reachable,
	})
	verdictsB := sweep.VerdictSet{
		"192.168.2.1": {IP: net.ParseIP("192.168.2.1"), Outcome: probe.Reachable},
		"192.168.2.2": {IP: net.ParseIP("192.168.2.2"), Outcome: probe.Unreachable},
		"192.168.2.3": {IP: net.ParseIP("192.168.2.3"), Outcome: probe.Indeterminate, Reason: "interface down"},
	}

	result := ComputePaired(ipsA, ipsB, verdictsA, verdictsB)

	if got := ipStrings(result.OnlyOnA); !reflect.DeepEqual(got, []string{"192.168.1.2"}) {
		t.Errorf("OnlyOnA = %v, want [192.168.1.2]", got)
	}
	if len(result.OnlyOnB) != 0 {
		t.Errorf("OnlyOnB = %v, want empty", result.OnlyOnB)
	}
	if len(result.Unknown) != 1 {
		t.Fatalf("Unknown count = %d, want 1", len(result.Unknown))
	}
	if result.Unknown[0].IP.String() != "192.168.2.3" || result.Unknown[0].Network != probe.NetworkB {
		t.Errorf("Unknown = %+v, want 192.168.2.3 on network-b", result.Unknown[0])
	}
}

func TestComputePairedUnequalPools(t *testing.T) {
	ipsA := []net.IP{net.ParseIP("192.168.1.1"), net.ParseIP("192.168.1.2")}
	ipsB := []net.IP{net.ParseIP("192.168.2.1")}

	verdictsA := makeVerdictSet(map[string]probe.Outcome{
		"192.168.1.1": probe.Reachable,
		"192.168.1.2": probe.Reachable,
	})
	verdictsB := makeVerdictSet(map[string]probe.Outcome{
		"192.168.2.1": probe.Reachable,
	})

	result := ComputePaired(ipsA, ipsB, verdictsA, verdictsB)

	// the unpaired tail address is diffed against absence
	if got := ipStrings(result.OnlyOnA); !reflect.DeepEqual(got, []string{"192.168.1.2"}) {
		t.Errorf("OnlyOnA = %v, want [192.168.1.2]", got)
	}
}

func BenchmarkCompute(b *testing.B) {
	outcomesA := make(map[string]probe.Outcome, 254)
	outcomesB := make(map[string]probe.Outcome, 254)
	for i := 1; i <= 254; i++ {
		key := net.IPv4(10, 0, 0, byte(i)).String()
		outcomesA[key] = probe.Reachable
		if i%2 == 0 {
			outcomesB[key] = probe.Unreachable
		} else {
			outcomesB[key] = probe.Reachable
		}
	}
	verdictsA := makeVerdictSet(outcomesA)
	verdictsB := makeVerdictSet(outcomesB)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(verdictsA, verdictsB)
	}
}
