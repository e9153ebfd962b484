package lsnrhttps

import (
	"crypto/tls"
	"time"

	"github.com/opensvc/httpd/core/handling"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

func WithAddr(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.addr = s
		return nil
	})
}

// WithThreads sets the worker pool size
func WithThreads(n int) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.threads = n
		return nil
	})
}

func WithHandler(h handling.T) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.handler = h
		return nil
	})
}

// WithIdentity sets the PKCS#12 file and its passphrase
func WithIdentity(file, password string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.identityFile = file
		t.identityPassword = password
		return nil
	})
}

// WithCertificate sets the server certificate, WithIdentity is then
// ignored
func WithCertificate(c tls.Certificate) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.certificate = &c
		return nil
	})
}

func WithHandshakeTimeout(d time.Duration) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.handshakeTimeout = d
		return nil
	})
}

func WithPollInterval(d time.Duration) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.pollInterval = d
		return nil
	})
}

func WithReadTimeout(d time.Duration) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.readTimeout = d
		return nil
	})
}

func WithRoutineTracer(o routinehelper.Tracer) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.tracer = o
		return nil
	})
}
