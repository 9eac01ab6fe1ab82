package http

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.HostGuard = (*Guard)(nil)

// Resolver looks up the addresses of a host. *net.Resolver implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// blockedNames are host names, or name suffixes when they start with a
// dot, that always refer to the local machine or an internal network.
var blockedNames = []string{
	"localhost",
	".localhost",
	".local",
	".internal",
	"metadata.google.internal",
}

// blockedPrefixes are address ranges that are never fetched.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // CGNAT, includes 100.100.100.200
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // includes 169.254.169.254
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// Guard rejects hosts that are, or resolve to, loopback, private,
// link-local or cloud metadata addresses.
type Guard struct {
	Resolver Resolver
}

// NewGuard returns a Guard using the default DNS resolver.
func NewGuard() *Guard {
	return &Guard{Resolver: net.DefaultResolver}
}

// CheckHost returns EBLOCKED if host is an internal name or if any of its
// addresses is blocked. A lookup failure returns EFETCH.
func (g *Guard) CheckHost(ctx context.Context, host string) error {
	name := strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if name == "" {
		return docindex.Errorf(docindex.EBLOCKED, "empty host")
	}
	for _, b := range blockedNames {
		if name == b || (strings.HasPrefix(b, ".") && strings.HasSuffix(name, b)) {
			return docindex.Errorf(docindex.EBLOCKED, "host %s is internal", host)
		}
	}

	if addr, err := netip.ParseAddr(name); err == nil {
		return CheckAddr(addr)
	}

	addrs, err := g.Resolver.LookupNetIP(ctx, "ip", name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return docindex.Errorf(docindex.EFETCH, "resolve %s: %v", host, err)
	}
	if len(addrs) == 0 {
		return docindex.Errorf(docindex.EFETCH, "resolve %s: no addresses", host)
	}
	for _, addr := range addrs {
		if err := CheckAddr(addr); err != nil {
			return docindex.Errorf(docindex.EBLOCKED, "host %s resolves to blocked address %s", host, addr)
		}
	}
	return nil
}

// CheckAddr returns EBLOCKED if addr is in a blocked range. IPv4-mapped
// IPv6 addresses are checked as IPv4.
func CheckAddr(addr netip.Addr) error {
	addr = addr.Unmap().WithZone("")
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return docindex.Errorf(docindex.EBLOCKED, "address %s is not public", addr)
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return docindex.Errorf(docindex.EBLOCKED, "address %s is not public", addr)
		}
	}
	return nil
}
