// Package identity generates the PKCS#12 identity of the secured
// listener: a self signed certificate and its private key.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"
)

type (
	// Options describes the certificate to generate
	Options struct {
		CommonName   string
		Organization string
		AltNames     []string
		Bits         int
		Validity     time.Duration
	}
)

var (
	DefaultBits     = 2048
	DefaultValidity = 365 * 24 * time.Hour

	fileMode fs.FileMode = 0600
	dirMode  fs.FileMode = 0700
)

func getBaseKeyUsage(priv interface{}) x509.KeyUsage {
	keyUsage := x509.KeyUsageDigitalSignature
	if _, isRSA := priv.(*rsa.PrivateKey); isRSA {
		keyUsage |= x509.KeyUsageKeyEncipherment
	}
	return keyUsage
}

// template returns a server certificate template. The alt names parsing
// as ip addresses go to IPAddresses, the others to DNSNames.
func (o Options) template(keyUsage x509.KeyUsage) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: o.CommonName},
		NotBefore:             time.Now().Add(-10 * time.Second),
		NotAfter:              time.Now().Add(o.Validity),
		KeyUsage:              keyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	if o.Organization != "" {
		template.Subject.Organization = []string{o.Organization}
	}
	for _, name := range append([]string{o.CommonName}, o.AltNames...) {
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if name != "" {
			template.DNSNames = append(template.DNSNames, name)
		}
	}
	return template, nil
}

func genCert(template, parent *x509.Certificate, publicKey *rsa.PublicKey, privateKey *rsa.PrivateKey) (*x509.Certificate, error) {
	certBytes, err := x509.CreateCertificate(rand.Reader, template, parent, publicKey, privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}
	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate")
	}
	return cert, nil
}

// New returns the PKCS#12 encoding of a new self signed certificate and
// its private key, protected by password.
func New(o Options, password string) ([]byte, error) {
	if o.CommonName == "" {
		return nil, fmt.Errorf("identity: empty common name")
	}
	if o.Bits == 0 {
		o.Bits = DefaultBits
	}
	if o.Validity <= 0 {
		o.Validity = DefaultValidity
	}
	priv, err := rsa.GenerateKey(rand.Reader, o.Bits)
	if err != nil {
		return nil, errors.Wrapf(err, "generate %d bits key", o.Bits)
	}
	template, err := o.template(getBaseKeyUsage(priv))
	if err != nil {
		return nil, err
	}
	cert, err := genCert(template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	b, err := pkcs12.Encode(rand.Reader, priv, cert, nil, password)
	if err != nil {
		return nil, errors.Wrap(err, "encode identity")
	}
	return b, nil
}

// Write creates the identity file at p, readable by the owner only
func Write(p string, o Options, password string) error {
	b, err := New(o, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirMode); err != nil {
		return err
	}
	if err := os.WriteFile(p, b, fileMode); err != nil {
		return errors.Wrapf(err, "write identity %s", p)
	}
	return nil
}
