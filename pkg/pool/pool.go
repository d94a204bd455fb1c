package pool

import (
	"fmt"
	"net"
	"strings"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/mapcidr"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// Options controls address pool resolution.
type Options struct {
	// IgnoreOctets drops IPv4 addresses whose last octet matches an
	// entry. Out-of-range entries (outside 0-255) are warned about and
	// skipped, not fatal.
	IgnoreOctets []int
}

// Resolve expands a network's target list (CIDR blocks and/or explicit
// addresses) into a deduplicated ordered sequence of IPs. Network and
// broadcast addresses of each CIDR are excluded. A malformed target is a
// configuration error and aborts resolution; an empty target list is
// valid and yields an empty pool. No network I/O is performed.
func Resolve(targets []string, options Options) ([]net.IP, error) {
	ignored := ignoreSet(options.IgnoreOctets)

	var pool []net.IP
	seen := make(map[string]struct{})
	add := func(ip net.IP) {
		key := ip.String()
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		pool = append(pool, ip)
	}

	for _, target := range sliceutil.Dedupe(targets) {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		// Try to parse as CIDR first
		if _, ipNet, err := net.ParseCIDR(target); err == nil {
			ips, err := mapcidr.IPAddresses(target)
			if err != nil {
				return nil, fmt.Errorf("failed to expand CIDR %s: %w", target, err)
			}
			for _, ipStr := range ips {
				ip := net.ParseIP(ipStr)
				if ip == nil {
					continue
				}
				if isNetworkOrBroadcast(ip, ipNet) {
					continue
				}
				if isIgnored(ip, ignored) {
					continue
				}
				add(ip)
			}
			continue
		}

		// Try to parse as individual IP
		if ip := net.ParseIP(target); ip != nil {
			if !isIgnored(ip, ignored) {
				add(ip)
			}
			continue
		}

		return nil, fmt.Errorf("invalid target format: %s (must be CIDR or IP)", target)
	}

	return pool, nil
}

// Union merges two pools into a deduplicated sequence preserving
// first-seen order. Used to build the probed address universe when both
// pools describe the same device set.
func Union(a, b []net.IP) []net.IP {
	union := make([]net.IP, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, ip := range a {
		key := ip.String()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		union = append(union, ip)
	}
	for _, ip := range b {
		key := ip.String()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		union = append(union, ip)
	}
	return union
}

func ignoreSet(octets []int) map[int]struct{} {
	set := make(map[int]struct{}, len(octets))
	for _, octet := range octets {
		if octet < 0 || octet > 255 {
			gologger.Warning().Msgf("ignore octet %d is out of range (0-255), skipping", octet)
			continue
		}
		set[octet] = struct{}{}
	}
	return set
}

func isIgnored(ip net.IP, ignored map[int]struct{}) bool {
	if len(ignored) == 0 {
		return false
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	_, ok := ignored[int(ip4[3])]
	return ok
}

// isNetworkOrBroadcast checks if an IP is the network or broadcast
// address of the given range. For IPv6 multicast stands in for
// broadcast.
func isNetworkOrBroadcast(ip net.IP, network *net.IPNet) bool {
	if network == nil {
		return false
	}

	if ip.Equal(network.IP) {
		return true
	}

	// For IPv4, check broadcast address
	if ip4 := ip.To4(); ip4 != nil {
		broadcast := make(net.IP, len(network.IP))
		copy(broadcast, network.IP)
		for i := range broadcast {
			broadcast[i] |= ^network.Mask[i]
		}
		return ip.Equal(broadcast)
	}

	return ip.IsMulticast()
}
