/*
Package lsnrmetrics serves the daemon metrics over http.

Routes:

	/metrics        prometheus exposition
	/healthz        "ok"
	/debug/pprof/*  profiling, when enabled
*/
package lsnrmetrics

import (
	"errors"
	golog "log"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	T struct {
		routinehelper.TT
		addr     string
		pprof    bool
		log      zerolog.Logger
		listener net.Listener
		server   *http.Server
		wg       sync.WaitGroup
		stopOnce sync.Once
	}
)

var (
	mwProm = echoprometheus.NewMiddleware("httpd_metrics")
)

// New binds the metrics address
func New(opts ...funcopt.O) (*T, error) {
	t := &T{}
	t.SetTracer(routinehelper.NewTracerNoop())
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, pkgerrors.Wrap(err, "listener funcopt.Apply")
	}
	lsnr, err := net.Listen("tcp", t.addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "lsnr-metrics: listen %s", t.addr)
	}
	t.listener = lsnr
	t.addr = lsnr.Addr().String()
	t.log = log.Logger.With().Str("addr", t.addr).Str("sub", "lsnr-metrics").Logger()
	t.server = &http.Server{
		Handler:  t.router(),
		ErrorLog: golog.New(t.log, "", 0),
	}
	return t, nil
}

func (t *T) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if t.pprof {
		pprof.Register(e)
	}
	e.Use(mwProm)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

// Addr returns the bound address
func (t *T) Addr() net.Addr {
	return t.listener.Addr()
}

func (t *T) Start() error {
	t.wg.Add(1)
	done := t.Trace("lsnr-metrics")
	go func() {
		defer t.wg.Done()
		defer done()
		if err := t.server.Serve(t.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error().Err(err).Msg("serve")
		}
	}()
	t.log.Info().Msg("listener started")
	return nil
}

// Stop closes the server and waits for the serve goroutine. It is
// idempotent.
func (t *T) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.log.Info().Msg("listener stopping")
		if err = t.server.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Error().Err(err).Msg("listener close failure")
		} else {
			err = nil
		}
		t.wg.Wait()
		t.log.Info().Msg("listener stopped")
	})
	return err
}
