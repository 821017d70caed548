// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

// Package tls mints the self-signed certificates routegate serves with
// when the operator enables TLS without supplying a pair.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCertPath is where an auto-generated certificate lands.
	DefaultCertPath = "certs/routegate.crt"
	// DefaultKeyPath is where an auto-generated key lands.
	DefaultKeyPath = "certs/routegate.key"
	// DefaultValidityYears covers a self-signed pair's lifetime.
	DefaultValidityYears = 10
)

// Config selects the certificate pair the daemon should serve with.
type Config struct {
	CertPath string
	KeyPath  string
	Logger   zerolog.Logger
}

// EnsureCertificates returns a usable certificate pair, minting a
// self-signed one when either file is missing. An existing complete
// pair is left untouched.
func EnsureCertificates(cfg Config) (certPath, keyPath string, err error) {
	certPath, keyPath = cfg.CertPath, cfg.KeyPath
	if certPath == "" {
		certPath = DefaultCertPath
	}
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}

	haveCert, haveKey := fileExists(certPath), fileExists(keyPath)
	if haveCert && haveKey {
		cfg.Logger.Debug().
			Str("cert", certPath).
			Str("key", keyPath).
			Msg("TLS certificates found")
		return certPath, keyPath, nil
	}
	if haveCert != haveKey {
		cfg.Logger.Warn().
			Bool("cert_exists", haveCert).
			Bool("key_exists", haveKey).
			Msg("incomplete TLS certificate pair, regenerating both")
	}

	spec := Spec{
		CertPath:      certPath,
		KeyPath:       keyPath,
		ValidityYears: DefaultValidityYears,
	}
	ips, ipErr := InterfaceIPs()
	if ipErr != nil {
		cfg.Logger.Warn().
			Err(ipErr).
			Msg("interface scan failed, certificate covers localhost only")
	} else {
		spec.ExtraIPs = ips
	}

	cfg.Logger.Info().
		Str("event", "tls.generate").
		Str("cert", certPath).
		Str("key", keyPath).
		Int("extra_ips", len(spec.ExtraIPs)).
		Msg("generating self-signed TLS certificate")

	if err := Generate(spec); err != nil {
		return "", "", fmt.Errorf("generate self-signed pair: %w", err)
	}
	return certPath, keyPath, nil
}

// Spec describes a self-signed certificate to mint. Localhost names
// and addresses are always in the SAN list; ExtraIPs and ExtraDNS
// extend it.
type Spec struct {
	CertPath      string
	KeyPath       string
	ValidityYears int
	ExtraIPs      []net.IP
	ExtraDNS      []string
}

// Generate writes an ECDSA P-256 self-signed server certificate and
// its key, creating the certificate directory as needed. The key file
// is written mode 0600.
func Generate(spec Spec) error {
	if err := os.MkdirAll(filepath.Dir(spec.CertPath), 0o750); err != nil {
		return fmt.Errorf("create cert directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"routegate self-signed"},
			CommonName:   "routegate",
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(spec.ValidityYears, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           mergeIPs(spec.ExtraIPs),
		DNSNames:              mergeDNS(spec.ExtraDNS),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	if err := writePEM(spec.CertPath, "CERTIFICATE", der, 0o644); err != nil {
		return err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	return writePEM(spec.KeyPath, "EC PRIVATE KEY", keyDER, 0o600)
}

func localhostIPs() []net.IP {
	return []net.IP{
		net.ParseIP("127.0.0.1"),
		net.ParseIP("::1"),
		net.ParseIP("0.0.0.0"),
		net.ParseIP("::"),
	}
}

// mergeIPs prepends the localhost addresses and drops duplicates while
// keeping order.
func mergeIPs(extra []net.IP) []net.IP {
	seen := make(map[string]struct{})
	var out []net.IP
	for _, ip := range append(localhostIPs(), extra...) {
		if ip == nil {
			continue
		}
		key := ip.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ip)
	}
	return out
}

func mergeDNS(extra []string) []string {
	defaults := []string{"localhost", "localhost.localdomain", "routegate"}
	seen := make(map[string]struct{})
	var out []string
	for _, name := range append(defaults, extra...) {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// writePEM writes a single PEM block to path with the given mode.
func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	// #nosec G304 -- paths come from operator configuration
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
