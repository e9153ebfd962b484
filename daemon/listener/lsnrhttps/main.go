// Package lsnrhttps is the secured listener: the plaintext listener with
// a TLS handshake run in the worker job before the connection is served.
package lsnrhttps

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opensvc/httpd/core/handling"
	"github.com/opensvc/httpd/daemon/listener/lsnrhttp"
	"github.com/opensvc/httpd/daemon/listener/lsnrpoll"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	T struct {
		*lsnrhttp.T

		addr             string
		threads          int
		handler          handling.T
		identityFile     string
		identityPassword string
		certificate      *tls.Certificate
		handshakeTimeout time.Duration
		pollInterval     time.Duration
		readTimeout      time.Duration
		tracer           routinehelper.Tracer
		log              zerolog.Logger

		tlsConfig *tls.Config
	}
)

const (
	name = "lsnr-https"
)

var (
	DefaultHandshakeTimeout = 5 * time.Second
)

// New builds the handshake capability from the identity, then creates
// the worker pool and binds the listener.
func New(opts ...funcopt.O) (*T, error) {
	t := &T{
		threads:          lsnrhttp.DefaultThreads,
		handshakeTimeout: DefaultHandshakeTimeout,
		pollInterval:     lsnrpoll.DefaultPollInterval,
		readTimeout:      lsnrpoll.DefaultReadTimeout,
		tracer:           routinehelper.NewTracerNoop(),
	}
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, errors.Wrap(err, "listener funcopt.Apply")
	}
	if t.certificate == nil {
		c, err := LoadIdentity(t.identityFile, t.identityPassword)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		t.certificate = &c
	}
	t.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{*t.certificate},
		MinVersion:   tls.VersionTLS12,
	}
	lsnr, err := lsnrhttp.New(
		lsnrhttp.WithName(name),
		lsnrhttp.WithAddr(t.addr),
		lsnrhttp.WithThreads(t.threads),
		lsnrhttp.WithHandler(t.handler),
		lsnrhttp.WithSecure(t.handshake),
		lsnrhttp.WithPollInterval(t.pollInterval),
		lsnrhttp.WithReadTimeout(t.readTimeout),
		lsnrhttp.WithRoutineTracer(t.tracer),
	)
	if err != nil {
		return nil, err
	}
	t.T = lsnr
	t.log = log.Logger.With().Str("sub", name).Str("addr", lsnr.Addr().String()).Logger()
	return t, nil
}

// handshake runs on a worker. The deadline bounds the time a stalled
// client can hold the worker.
func (t *T) handshake(conn net.Conn) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.handshakeTimeout)
	defer cancel()
	tlsConn := tls.Server(conn, t.tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	state := tlsConn.ConnectionState()
	t.log.Debug().
		Str("peer", conn.RemoteAddr().String()).
		Str("cipher", tls.CipherSuiteName(state.CipherSuite)).
		Msg("handshake done")
	return tlsConn, nil
}
