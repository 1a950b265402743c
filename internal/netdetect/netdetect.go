// Package netdetect discovers local IPv4 networks for default scan targets.
// It enumerates non-loopback interface addresses, maps each to its /24
// network, and expands CIDR networks into individual host addresses.
package netdetect

import (
	"fmt"
	"net"
	"sort"

	"github.com/ostrand/lansweep/internal/errors"
)

const defaultPrefixLen = 24

// LocalNetworks returns the /24 networks of all local non-loopback IPv4
// interface addresses, deduplicated and sorted for stable output.
func LocalNetworks() ([]*net.IPNet, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeNetworkUnreachable,
			"failed to enumerate network interfaces", err)
	}

	seen := make(map[string]*net.IPNet)
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() {
			continue
		}
		cidr := DefaultCIDR(ip4)
		seen[cidr.String()] = cidr
	}

	networks := make([]*net.IPNet, 0, len(seen))
	for _, n := range seen {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		return ipToUint32(networks[i].IP) < ipToUint32(networks[j].IP)
	})
	return networks, nil
}

// DefaultCIDR converts an IPv4 address into its default /24 network.
// For example 192.168.1.42 becomes 192.168.1.0/24.
func DefaultCIDR(ip net.IP) *net.IPNet {
	ip4 := ip.To4()
	network := net.IPv4(ip4[0], ip4[1], ip4[2], 0).To4()
	return &net.IPNet{
		IP:   network,
		Mask: net.CIDRMask(defaultPrefixLen, 32),
	}
}

// ExpandHosts expands a CIDR into individual host addresses suitable
// for scanning. For IPv4 the network and broadcast addresses are
// excluded; prefixes of /31 and /32 have no usable hosts and yield an
// empty list. IPv6 networks are not scanned and also yield an empty
// list.
func ExpandHosts(ipnet *net.IPNet) []net.IP {
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return nil
	}

	ones, bits := ipnet.Mask.Size()
	if bits != 32 || ones >= 31 {
		return nil
	}

	start := ipToUint32(ip4)
	bcast := start | (1<<uint(32-ones) - 1)

	hosts := make([]net.IP, 0, bcast-start-1)
	for n := start + 1; n < bcast; n++ {
		hosts = append(hosts, uint32ToIP(n))
	}
	return hosts
}

// ExpandTargets parses a list of target strings (plain IPv4 addresses
// or CIDR networks) into individual host addresses, deduplicated in
// first-appearance order.
func ExpandTargets(targets []string) ([]net.IP, error) {
	var out []net.IP
	seen := make(map[string]bool)

	add := func(ip net.IP) {
		key := ip.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, ip)
		}
	}

	for _, target := range targets {
		if _, ipnet, err := net.ParseCIDR(target); err == nil {
			for _, ip := range ExpandHosts(ipnet) {
				add(ip)
			}
			continue
		}
		ip := net.ParseIP(target)
		if ip == nil || ip.To4() == nil {
			return nil, errors.NewScanErrorWithTarget(errors.CodeTargetInvalid,
				fmt.Sprintf("not an IPv4 address or CIDR: %s", target), target)
		}
		add(ip.To4())
	}
	return out, nil
}

func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}

func uint32ToIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}
