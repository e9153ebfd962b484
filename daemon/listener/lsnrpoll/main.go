/*
Package lsnrpoll implements the accept-poll-dispatch loop shared by the
plaintext and the secured listeners.

State machine: Created -> Running -> Stopping -> Stopped.

The loop checks the running flag before each accept. An accept waits at
most one poll interval, so a Stop is observed within one interval.
Accepted connections are dispatched to the executor; the optional
secure step and the connection handling both run in the job, never in
the loop goroutine.
*/
package lsnrpoll

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/opensvc/httpd/daemon/listener/connhandler"
	"github.com/opensvc/httpd/daemon/lsnrmetric"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/daemon/workerpool"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	// Listener is a net.Listener supporting accept deadlines, like
	// *net.TCPListener and *net.UnixListener
	Listener interface {
		net.Listener
		SetDeadline(time.Time) error
	}

	// Executor runs the connection jobs
	Executor interface {
		Execute(workerpool.Job) error
	}

	// SecureFunc turns an accepted connection into a secured one
	SecureFunc func(net.Conn) (net.Conn, error)

	State int32

	T struct {
		routinehelper.TT
		name         string
		addr         string
		listener     Listener
		executor     Executor
		handler      connhandler.Handler
		secure       SecureFunc
		pollInterval time.Duration
		readTimeout  time.Duration
		log          zerolog.Logger

		conn       *connhandler.T
		running    atomic.Bool
		state      atomic.Int32
		accepted   atomic.Uint64
		mu         sync.Mutex
		wg         sync.WaitGroup
		stopOnce   sync.Once
		errLimiter *rate.Limiter
	}
)

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

var (
	DefaultPollInterval = 80 * time.Millisecond
	DefaultReadTimeout  = 5 * time.Second
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// New binds the listener address and returns a loop in the Created
// state.
func New(opts ...funcopt.O) (*T, error) {
	t := &T{
		name:         "lsnr",
		pollInterval: DefaultPollInterval,
		readTimeout:  DefaultReadTimeout,
		log:          log.Logger,
		errLimiter:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
	t.SetTracer(routinehelper.NewTracerNoop())
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, pkgerrors.Wrap(err, "listener funcopt.Apply")
	}
	switch {
	case t.executor == nil:
		return nil, fmt.Errorf("%s: no executor", t.name)
	case t.handler == nil:
		return nil, fmt.Errorf("%s: no handler", t.name)
	case t.pollInterval <= 0:
		return nil, fmt.Errorf("%s: invalid poll interval %s", t.name, t.pollInterval)
	}
	if t.listener == nil {
		l, err := net.Listen("tcp", t.addr)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s: listen %s", t.name, t.addr)
		}
		t.listener = l.(*net.TCPListener)
	}
	t.addr = t.listener.Addr().String()
	t.log = t.log.With().Str("sub", t.name).Str("addr", t.addr).Logger()
	t.conn = connhandler.New(t.name, t.handler, t.readTimeout, t.log)
	t.state.Store(int32(Created))
	return t, nil
}

func (t *T) Name() string {
	return t.name
}

// Addr returns the bound address
func (t *T) Addr() net.Addr {
	return t.listener.Addr()
}

func (t *T) State() State {
	return State(t.state.Load())
}

// Accepted returns the number of accepted connections
func (t *T) Accepted() uint64 {
	return t.accepted.Load()
}

// Start launches the loop goroutine
func (t *T) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.CompareAndSwap(int32(Created), int32(Running)) {
		return fmt.Errorf("%s: can't start from state %s", t.name, t.State())
	}
	t.running.Store(true)
	t.launch()
	t.log.Info().Msg("listener started")
	return nil
}

func (t *T) launch() {
	t.wg.Add(1)
	done := t.Trace(t.name + "-loop")
	go func() {
		defer t.wg.Done()
		defer done()
		t.loop()
	}()
}

// Stop clears the running flag, waits for the loop goroutine and closes
// the listener. Jobs already dispatched are not waited for. Stop is
// idempotent and can be called before Start.
func (t *T) Stop() error {
	var err error
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopOnce.Do(func() {
		t.log.Info().Msg("listener stopping")
		t.state.Store(int32(Stopping))
		t.running.Store(false)
		t.wg.Wait()
		if err = t.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Error().Err(err).Msg("listener close")
		} else {
			err = nil
		}
		t.state.Store(int32(Stopped))
		t.log.Info().Msg("listener stopped")
	})
	return err
}

func (t *T) loop() {
	for t.running.Load() {
		t.poll()
	}
	t.log.Debug().Msg("loop exited")
}

func (t *T) poll() {
	if err := t.listener.SetDeadline(time.Now().Add(t.pollInterval)); err != nil {
		t.logAcceptError(err, "set accept deadline")
		time.Sleep(t.pollInterval)
		return
	}
	conn, err := t.listener.Accept()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		lsnrmetric.AcceptErrors.WithLabelValues(t.name).Inc()
		t.logAcceptError(err, "accept")
		time.Sleep(t.pollInterval)
		return
	}
	t.accepted.Add(1)
	lsnrmetric.Accepted.WithLabelValues(t.name).Inc()
	t.dispatch(conn)
}

func (t *T) dispatch(conn net.Conn) {
	job := func() {
		c := conn
		if t.secure != nil {
			secured, err := t.secure(conn)
			if err != nil {
				lsnrmetric.HandshakeFailures.WithLabelValues(t.name).Inc()
				t.log.Warn().Err(err).Str("peer", conn.RemoteAddr().String()).Msg("secure handshake failed, connection dropped")
				_ = conn.Close()
				return
			}
			c = secured
		}
		t.conn.Serve(c)
	}
	if err := t.executor.Execute(job); err != nil {
		t.log.Error().Err(err).Msg("dispatch connection job")
		_ = conn.Close()
	}
}

func (t *T) logAcceptError(err error, msg string) {
	if t.errLimiter.Allow() {
		t.log.Error().Err(err).Msg(msg)
	}
}
