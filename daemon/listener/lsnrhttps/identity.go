package lsnrhttps

import (
	"crypto/tls"
	"os"

	"github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"
)

// LoadIdentity decodes the PKCS#12 file protected by password into a
// tls certificate, chain included.
func LoadIdentity(file, password string) (tls.Certificate, error) {
	var c tls.Certificate
	b, err := os.ReadFile(file)
	if err != nil {
		return c, errors.Wrap(err, "read identity")
	}
	key, cert, caCerts, err := pkcs12.DecodeChain(b, password)
	if err != nil {
		return c, errors.Wrapf(err, "decode identity %s", file)
	}
	c.PrivateKey = key
	c.Leaf = cert
	c.Certificate = [][]byte{cert.Raw}
	for _, ca := range caCerts {
		c.Certificate = append(c.Certificate, ca.Raw)
	}
	return c, nil
}
