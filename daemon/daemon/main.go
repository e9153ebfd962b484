/*
Package daemon is the main of the httpd daemon.

It constructs the document root resolver, the plaintext and secured
listeners, the optional metrics listener and the control channel, then
blocks on the control channel until a stop command or a signal is
received. The components are stopped in reverse construction order.
The service manager is notified when the daemon is ready and when it
is stopping.

A listener failing to construct or start is logged and skipped, the
daemon serves with the other ones. The control channel is mandatory.
*/
package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opensvc/httpd/config"
	"github.com/opensvc/httpd/core/docroot"
	"github.com/opensvc/httpd/core/handling"
	"github.com/opensvc/httpd/daemon/daemonsys"
	"github.com/opensvc/httpd/daemon/listener/lsnrctlux"
	"github.com/opensvc/httpd/daemon/listener/lsnrhttp"
	"github.com/opensvc/httpd/daemon/listener/lsnrhttps"
	"github.com/opensvc/httpd/daemon/listener/lsnrmetrics"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	T struct {
		routinehelper.TT
		config  *config.T
		tracer  routinehelper.Tracer
		signals []os.Signal
		log     zerolog.Logger

		resolver *docroot.T
		subs     []sub
		control  *lsnrctlux.T
		stopOnce sync.Once
	}

	sub struct {
		name string
		mgr  manager
	}

	manager interface {
		Start() error
		Stop() error
		Addr() net.Addr
	}
)

// New returns the daemon main of the settings c
func New(c *config.T, opts ...funcopt.O) (*T, error) {
	t := &T{
		config:  c,
		tracer:  routinehelper.NewTracerNoop(),
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		log:     log.Logger.With().Str("name", "daemon-main").Logger(),
	}
	t.SetTracer(t.tracer)
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, pkgerrors.Wrap(err, "daemon main funcopt.Apply")
	}
	return t, nil
}

// Init constructs the components. An error is returned if the document
// root or the control channel can't be set up.
func (t *T) Init() error {
	c := t.config
	resolver, err := docroot.New(c.Server.DocumentRoot)
	if err != nil {
		return err
	}
	t.resolver = resolver
	if c.HTTP.Enabled {
		t.add("lsnr-http", t.newHTTP)
	}
	if c.HTTPS.Enabled {
		t.add("lsnr-https", t.newHTTPS)
	}
	if c.Metrics.Addr != "" {
		t.add("lsnr-metrics", t.newMetrics)
	}
	if len(t.subs) == 0 {
		t.log.Warn().Msg("no listener available")
	}
	control, err := lsnrctlux.New(
		lsnrctlux.WithPath(c.Control.Socket),
		lsnrctlux.WithName(config.Program),
		lsnrctlux.WithPollInterval(c.Control.PollInterval),
		lsnrctlux.WithSignals(t.signals...),
		lsnrctlux.WithRoutineTracer(t.tracer),
	)
	if err != nil {
		t.stopSubs()
		return err
	}
	t.control = control
	return nil
}

func (t *T) add(name string, fn func() (manager, error)) {
	mgr, err := fn()
	if err != nil {
		t.log.Error().Err(err).Msgf("%s disabled", name)
		return
	}
	t.subs = append(t.subs, sub{name: name, mgr: mgr})
}

func (t *T) newHTTP() (manager, error) {
	c := t.config
	return lsnrhttp.New(
		lsnrhttp.WithAddr(c.Addr(c.HTTP.Port)),
		lsnrhttp.WithThreads(c.HTTP.Workers()),
		lsnrhttp.WithHandler(handling.New(t.resolver, c.HTTP.Redirect)),
		lsnrhttp.WithPollInterval(c.Listener.PollInterval),
		lsnrhttp.WithReadTimeout(c.Listener.ReadTimeout),
		lsnrhttp.WithRoutineTracer(t.tracer),
	)
}

func (t *T) newHTTPS() (manager, error) {
	c := t.config
	return lsnrhttps.New(
		lsnrhttps.WithAddr(c.Addr(c.HTTPS.Port)),
		lsnrhttps.WithThreads(c.HTTPS.Workers()),
		lsnrhttps.WithHandler(handling.New(t.resolver, c.HTTPS.Redirect)),
		lsnrhttps.WithIdentity(c.HTTPS.SSL.Identity, c.HTTPS.SSL.Password),
		lsnrhttps.WithPollInterval(c.Listener.PollInterval),
		lsnrhttps.WithReadTimeout(c.Listener.ReadTimeout),
		lsnrhttps.WithRoutineTracer(t.tracer),
	)
}

func (t *T) newMetrics() (manager, error) {
	c := t.config
	return lsnrmetrics.New(
		lsnrmetrics.WithAddr(c.Metrics.Addr),
		lsnrmetrics.WithPprof(c.Metrics.Pprof),
		lsnrmetrics.WithRoutineTracer(t.tracer),
	)
}

// Start starts the constructed listeners
func (t *T) Start() error {
	if t.control == nil {
		return fmt.Errorf("daemon not initialized")
	}
	for _, s := range t.subs {
		if err := s.mgr.Start(); err != nil {
			t.log.Error().Err(err).Msgf("%s start", s.name)
		}
	}
	t.log.Info().Msgf("started with %d listeners", len(t.subs))
	t.sdNotify(daemonsys.Ready)
	return nil
}

func (t *T) sdNotify(state string) {
	sent, err := daemonsys.Notify(state)
	switch {
	case err != nil:
		t.log.Warn().Err(err).Msgf("systemd notify %s", state)
	case sent:
		t.log.Debug().Msgf("systemd notified %s", state)
	}
}

// Addrs returns the bound address of each listener by name
func (t *T) Addrs() map[string]net.Addr {
	m := make(map[string]net.Addr)
	for _, s := range t.subs {
		m[s.name] = s.mgr.Addr()
	}
	return m
}

// Block waits for a stop command on the control channel or a signal
func (t *T) Block() error {
	if t.control == nil {
		return fmt.Errorf("daemon not initialized")
	}
	return t.control.ListenBlock()
}

// Stop stops the listeners in reverse construction order, then closes
// the control channel. It is idempotent.
func (t *T) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.log.Info().Msg("stopping server")
		t.sdNotify(daemonsys.Stopping)
		err = t.stopSubs()
		if t.control != nil {
			err = errors.Join(err, t.control.Close())
		}
		t.log.Info().Msg("server stopped")
	})
	return err
}

func (t *T) stopSubs() error {
	var errs error
	for i := len(t.subs) - 1; i >= 0; i-- {
		s := t.subs[i]
		if err := s.mgr.Stop(); err != nil {
			t.log.Error().Err(err).Msgf("%s stop", s.name)
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Run initializes, starts, blocks until a stop request, then stops the
// daemon.
func Run(c *config.T, opts ...funcopt.O) error {
	t, err := New(c, opts...)
	if err != nil {
		return err
	}
	if err := t.Init(); err != nil {
		return err
	}
	if err := t.Start(); err != nil {
		return errors.Join(err, t.Stop())
	}
	blockErr := t.Block()
	return errors.Join(blockErr, t.Stop())
}
