// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

// Command gencert mints a self-signed TLS pair for a routegate
// deployment that terminates TLS itself. Extra SAN entries cover
// gates reached under a LAN name or address.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/ManuGH/routegate/internal/tls"
)

func main() {
	certPath := flag.String("cert", tls.DefaultCertPath, "certificate output path")
	keyPath := flag.String("key", tls.DefaultKeyPath, "key output path")
	years := flag.Int("years", tls.DefaultValidityYears, "validity in years")
	sanIPs := flag.String("san-ip", "", "comma-separated extra IP SANs")
	sanDNS := flag.String("san-dns", "", "comma-separated extra DNS SANs")
	flag.Parse()

	spec := tls.Spec{
		CertPath:      *certPath,
		KeyPath:       *keyPath,
		ValidityYears: *years,
		ExtraDNS:      splitList(*sanDNS),
	}
	for _, raw := range splitList(*sanIPs) {
		ip := net.ParseIP(raw)
		if ip == nil {
			fmt.Fprintf(os.Stderr, "Error: -san-ip entry %q is not an IP\n", raw)
			os.Exit(1)
		}
		spec.ExtraIPs = append(spec.ExtraIPs, ip)
	}

	if err := tls.Generate(spec); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Self-signed TLS certificates generated:\n")
	fmt.Printf("   📄 Certificate: %s\n", spec.CertPath)
	fmt.Printf("   🔑 Private Key: %s\n", spec.KeyPath)
	fmt.Printf("   ⏱️  Valid for: %d years\n", spec.ValidityYears)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
