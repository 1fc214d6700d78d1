package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// TLSSetup is the result of SetupTLS. Manager is set only for ACME.
type TLSSetup struct {
	Config  *tls.Config
	Manager *autocert.Manager
}

// SetupTLS picks a certificate source from the configuration: ACME when a
// domain is set, then explicit cert/key files, then a self-signed pair kept
// in CertDir. Returns nil when TLS is not configured at all.
func SetupTLS(c *Conf) (*TLSSetup, error) {
	switch {
	case c.WebDomain != "":
		cache := filepath.Join(c.CertDir, "acme")
		if err := os.MkdirAll(cache, 0o700); err != nil {
			return nil, fmt.Errorf("tls: acme cache: %w", err)
		}
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(c.WebDomain),
			Cache:      autocert.DirCache(cache),
		}
		log.Printf("TLS: ACME certificates for %s", c.WebDomain)
		return &TLSSetup{Config: m.TLSConfig(), Manager: m}, nil

	case c.TLSCert != "" && c.TLSKey != "":
		cert, err := tls.LoadX509KeyPair(c.TLSCert, c.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("tls: load %s: %w", c.TLSCert, err)
		}
		log.Printf("TLS: certificate %s", c.TLSCert)
		return &TLSSetup{Config: &tls.Config{Certificates: []tls.Certificate{cert}}}, nil

	case c.CertDir != "":
		cert, err := selfSigned(c.CertDir)
		if err != nil {
			return nil, err
		}
		return &TLSSetup{Config: &tls.Config{Certificates: []tls.Certificate{cert}}}, nil
	}
	return nil, nil
}

// selfSigned loads localhost.crt/localhost.key from dir, creating them on
// first use.
func selfSigned(dir string) (tls.Certificate, error) {
	certPath := filepath.Join(dir, "localhost.crt")
	keyPath := filepath.Join(dir, "localhost.key")
	if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
		return cert, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: cert dir: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: serial: %w", err)
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"riftcore"}, CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: sign: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: marshal key: %w", err)
	}
	if err := writePEM(certPath, "CERTIFICATE", der, 0o644); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(keyPath, "EC PRIVATE KEY", keyDER, 0o600); err != nil {
		return tls.Certificate{}, err
	}
	log.Printf("TLS: generated self-signed certificate in %s", dir)
	return tls.LoadX509KeyPair(certPath, keyPath)
}

func writePEM(path, typ string, der []byte, mode os.FileMode) error {
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("tls: write %s: %w", path, err)
	}
	return nil
}
