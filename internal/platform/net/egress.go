// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// ErrEgressDenied reports a URL that resolved outside the egress allowlist.
var ErrEgressDenied = errors.New("egress target not in allowlist")

// Allowlist pins the gate's outbound connections to operator-approved
// destinations. The gate only ever dials a handful of configured URLs
// (session backend, profile store, proxy upstream); with the list
// enabled, each of them must clear these rules before startup proceeds.
type Allowlist struct {
	Hosts   []string
	CIDRs   []string
	Ports   []int
	Schemes []string
}

// Rules is a compiled Allowlist ready to vet URLs.
type Rules struct {
	hosts   map[string]struct{}
	cidrs   []*net.IPNet
	ports   map[int]struct{}
	schemes map[string]struct{}
}

// Compile normalizes the allowlist into a reusable rule set. Host
// entries pass through IDNA mapping so unicode names compare equal to
// their punycode form; bare IPs in the CIDR list become /32 (or /128)
// networks.
func (a Allowlist) Compile() (*Rules, error) {
	r := &Rules{
		hosts:   make(map[string]struct{}, len(a.Hosts)),
		ports:   make(map[int]struct{}, len(a.Ports)),
		schemes: make(map[string]struct{}, len(a.Schemes)),
	}
	for _, raw := range a.Hosts {
		host, err := allowlistHost(raw)
		if err != nil {
			return nil, fmt.Errorf("allowlist host %q: %w", raw, err)
		}
		r.hosts[host] = struct{}{}
	}
	for _, raw := range a.CIDRs {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(entry); err == nil {
			r.cidrs = append(r.cidrs, ipnet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("allowlist cidr %q: not a CIDR or IP", raw)
		}
		bits := 128
		if ip.To4() != nil {
			bits = 32
		}
		r.cidrs = append(r.cidrs, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	for _, p := range a.Ports {
		if p < 1 || p > 65535 {
			return nil, fmt.Errorf("allowlist port %d out of range", p)
		}
		r.ports[p] = struct{}{}
	}
	for _, s := range a.Schemes {
		r.schemes[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return r, nil
}

// CheckURL reports whether the gate may dial raw. The hostname must be
// listed directly or resolve into an allowlisted CIDR. Loopback,
// unspecified, link-local and multicast addresses are refused unless a
// CIDR entry covers them explicitly.
func (r *Rules) CheckURL(ctx context.Context, raw string) error {
	u, err := ParseHTTPURL(raw)
	if err != nil {
		return err
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := r.schemes[scheme]; !ok {
		return fmt.Errorf("scheme %q not in allowlist", scheme)
	}

	port, err := effectivePort(u.Port(), scheme)
	if err != nil {
		return err
	}
	if _, ok := r.ports[port]; !ok {
		return fmt.Errorf("port %d not in allowlist", port)
	}

	host, err := canonicalHost(u.Hostname())
	if err != nil {
		return err
	}
	addrs, err := lookupAddrs(ctx, host)
	if err != nil {
		return err
	}

	_, hostListed := r.hosts[host]
	cidrHit := false
	for _, ip := range addrs {
		inCIDR := r.inCIDR(ip)
		if restrictedIP(ip) && !inCIDR {
			return fmt.Errorf("%w: %s resolves to restricted address %s", ErrEgressDenied, host, ip)
		}
		if inCIDR {
			cidrHit = true
		}
	}
	if !hostListed && !cidrHit {
		return fmt.Errorf("%w: %s", ErrEgressDenied, host)
	}
	return nil
}

func (r *Rules) inCIDR(ip net.IP) bool {
	for _, n := range r.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// allowlistHost validates an operator-supplied host entry. Entries are
// bare hostnames or IP literals; anything that looks like a pasted URL
// (scheme, path, userinfo, port) is rejected.
func allowlistHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if strings.Contains(host, "://") {
		return "", errors.New("must not include a scheme")
	}
	if strings.ContainsAny(host, "/@") {
		return "", errors.New("must be a bare hostname or IP")
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", errors.New("must not include a port")
	}
	return canonicalHost(host)
}

// canonicalHost lowercases a hostname, strips a trailing dot and maps
// it through IDNA. IP literals come back in canonical textual form.
func canonicalHost(raw string) (string, error) {
	host := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return "", errors.New("empty host")
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("zoned address %q not supported", raw)
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	ascii, err := idna.Lookup.ToASCII(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("hostname %q: %w", raw, err)
	}
	return ascii, nil
}

func effectivePort(portStr, scheme string) (int, error) {
	if portStr == "" {
		if scheme == "https" {
			return 443, nil
		}
		return 80, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("port %q: %w", portStr, err)
	}
	return port, nil
}

func lookupAddrs(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if a.IP != nil {
			ips = append(ips, a.IP)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve %q: no addresses", host)
	}
	return ips, nil
}

// restrictedIP flags address ranges the gate refuses to dial through
// name resolution: loopback, unspecified, link-local (which includes
// cloud metadata endpoints) and multicast. An explicit CIDR entry in
// the allowlist overrides the restriction.
func restrictedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast()
}
