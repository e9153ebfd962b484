// Package lsnrhttp is the plaintext listener: a poll loop bound to
// ip:port feeding its own worker pool.
package lsnrhttp

import (
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opensvc/httpd/core/handling"
	"github.com/opensvc/httpd/daemon/listener/lsnrpoll"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/daemon/workerpool"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	T struct {
		routinehelper.TT
		name         string
		addr         string
		threads      int
		handler      handling.T
		secure       lsnrpoll.SecureFunc
		pollInterval time.Duration
		readTimeout  time.Duration
		tracer       routinehelper.Tracer
		log          zerolog.Logger

		pool *workerpool.T
		loop *lsnrpoll.T
	}
)

const (
	DefaultThreads = 4
)

// New creates the worker pool and binds the listener. On bind failure
// the pool is stopped and the error returned. The logger carries the
// bound address, not the configured one.
func New(opts ...funcopt.O) (*T, error) {
	t := &T{
		name:         "lsnr-http",
		threads:      DefaultThreads,
		pollInterval: lsnrpoll.DefaultPollInterval,
		readTimeout:  lsnrpoll.DefaultReadTimeout,
		tracer:       routinehelper.NewTracerNoop(),
	}
	t.SetTracer(t.tracer)
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, errors.Wrap(err, "listener funcopt.Apply")
	}
	if t.threads < 1 {
		return nil, fmt.Errorf("%s: invalid threads %d", t.name, t.threads)
	}
	if !t.handler.Valid() {
		return nil, fmt.Errorf("%s: no handler", t.name)
	}
	pool, err := workerpool.New(t.threads,
		workerpool.WithName(t.name),
		workerpool.WithLogger(log.Logger.With().Str("sub", t.name).Logger()),
		workerpool.WithRoutineTracer(t.tracer),
	)
	if err != nil {
		return nil, err
	}
	loop, err := lsnrpoll.New(
		lsnrpoll.WithName(t.name),
		lsnrpoll.WithAddr(t.addr),
		lsnrpoll.WithExecutor(pool),
		lsnrpoll.WithHandler(t.handler),
		lsnrpoll.WithSecure(t.secure),
		lsnrpoll.WithPollInterval(t.pollInterval),
		lsnrpoll.WithReadTimeout(t.readTimeout),
		lsnrpoll.WithLogger(log.Logger),
		lsnrpoll.WithRoutineTracer(t.tracer),
	)
	if err != nil {
		pool.Stop()
		return nil, err
	}
	t.pool = pool
	t.loop = loop
	t.log = log.Logger.With().Str("sub", t.name).Str("addr", loop.Addr().String()).Logger()
	return t, nil
}

func (t *T) Name() string {
	return t.name
}

// Addr returns the bound address
func (t *T) Addr() net.Addr {
	return t.loop.Addr()
}

func (t *T) State() lsnrpoll.State {
	return t.loop.State()
}

func (t *T) Start() error {
	t.log.Info().Msgf("starting with %d threads, %s", t.threads, t.handler)
	return t.loop.Start()
}

// Stop stops the loop then the worker pool, in reverse construction
// order. The pool drains the already dispatched jobs.
func (t *T) Stop() error {
	err := t.loop.Stop()
	t.pool.Stop()
	return err
}
