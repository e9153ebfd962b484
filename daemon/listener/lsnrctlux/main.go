/*
Package lsnrctlux is the control channel of the daemon: a unix socket
accepting short text commands from the companion client.

The process blocks on ListenBlock. It returns when a client sends the
stop command, or when the running flag is cleared by Interrupt, Close or
one of the configured signals.

Protocol:

	stop       => "Stopping <name>." then ListenBlock returns
	<anything> => "Unknown command." and the session goes on
*/
package lsnrctlux

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/opensvc/httpd/daemon/lsnrmetric"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

type (
	T struct {
		routinehelper.TT
		name         string
		path         string
		pollInterval time.Duration
		signals      []os.Signal
		log          zerolog.Logger

		listener   *net.UnixListener
		running    atomic.Bool
		blocking   atomic.Bool
		closeOnce  sync.Once
		errLimiter *rate.Limiter
	}
)

const (
	CmdStop = "stop"

	ReplyUnknown = "Unknown command."

	maxCommandSize = 1024
)

var (
	DefaultPath         = "/tmp/httpd.sock"
	DefaultPollInterval = 80 * time.Millisecond

	// ErrInUse is returned by New when a live instance holds the socket
	ErrInUse = errors.New("control socket in use")

	// staleDialTimeout bounds the dial of an existing socket file
	staleDialTimeout = time.Second
)

// New binds the control socket exclusively. A socket file nobody
// accepts on is considered stale, removed and rebound. Any other file
// at path is left untouched and New fails.
func New(opts ...funcopt.O) (*T, error) {
	t := &T{
		name:         "httpd",
		path:         DefaultPath,
		pollInterval: DefaultPollInterval,
		signals:      []os.Signal{os.Interrupt, syscall.SIGTERM},
		log:          log.Logger,
		errLimiter:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
	t.SetTracer(routinehelper.NewTracerNoop())
	if err := funcopt.Apply(t, opts...); err != nil {
		return nil, pkgerrors.Wrap(err, "control funcopt.Apply")
	}
	if t.pollInterval <= 0 {
		return nil, fmt.Errorf("control: invalid poll interval %s", t.pollInterval)
	}
	t.log = t.log.With().Str("sub", "lsnr-ctl-ux").Str("addr", t.path).Logger()
	l, err := bind(t.path)
	if err != nil {
		return nil, err
	}
	t.listener = l
	t.running.Store(true)
	t.log.Info().Msg("control listener bound")
	return t, nil
}

func bind(path string) (*net.UnixListener, error) {
	addr := &net.UnixAddr{Name: path, Net: "unix"}
	l, err := net.ListenUnix("unix", addr)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, pkgerrors.Wrapf(err, "control: listen %s", path)
	}
	if c, dialErr := net.DialTimeout("unix", path, staleDialTimeout); dialErr == nil {
		_ = c.Close()
		return nil, pkgerrors.Wrapf(ErrInUse, "control: %s", path)
	}
	fi, statErr := os.Lstat(path)
	switch {
	case statErr != nil:
		return nil, pkgerrors.Wrapf(err, "control: listen %s", path)
	case fi.Mode()&os.ModeSocket == 0:
		return nil, pkgerrors.Wrapf(err, "control: %s is not a socket", path)
	}
	log.Logger.Warn().Str("addr", path).Msg("remove stale control socket")
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, pkgerrors.Wrapf(err, "control: remove stale %s", path)
	}
	l, err = net.ListenUnix("unix", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "control: listen %s", path)
	}
	return l, nil
}

func (t *T) Name() string {
	return t.name
}

// Path returns the control socket path
func (t *T) Path() string {
	return t.path
}

// ListenBlock serves the control sessions one at a time until the stop
// command is received or the running flag is cleared.
func (t *T) ListenBlock() error {
	if !t.blocking.CompareAndSwap(false, true) {
		return fmt.Errorf("control: already listening")
	}
	defer t.blocking.Store(false)
	if !t.running.Load() {
		return nil
	}
	stopSignals := t.notify()
	defer stopSignals()
	t.log.Info().Msg("control listener started")
	defer t.log.Info().Msg("control listener stopped")
	for t.running.Load() {
		conn, ok := t.poll()
		if !ok {
			continue
		}
		if t.serve(conn) {
			t.running.Store(false)
			return nil
		}
	}
	return nil
}

// Interrupt clears the running flag. ListenBlock returns within one poll
// interval.
func (t *T) Interrupt() {
	t.running.Store(false)
}

// Close clears the running flag, closes the listener and removes the
// socket file. It is idempotent.
func (t *T) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.running.Store(false)
		if closeErr := t.listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
		if rmErr := os.Remove(t.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
		t.log.Info().Msg("control listener closed")
	})
	return err
}

// notify clears the running flag on the first received signal. The
// returned func releases the signal handler and waits for its goroutine.
func (t *T) notify() func() {
	if len(t.signals) == 0 {
		return func() {}
	}
	c := make(chan os.Signal, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	signal.Notify(c, t.signals...)
	wg.Add(1)
	traced := t.Trace("lsnr-ctl-ux-signal")
	go func() {
		defer wg.Done()
		defer traced()
		select {
		case sig := <-c:
			t.log.Info().Msgf("received signal %s", sig)
			t.Interrupt()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(c)
		close(done)
		wg.Wait()
	}
}

func (t *T) poll() (*net.UnixConn, bool) {
	if err := t.listener.SetDeadline(time.Now().Add(t.pollInterval)); err != nil {
		t.logError(err, "set accept deadline")
		time.Sleep(t.pollInterval)
		return nil, false
	}
	conn, err := t.listener.AcceptUnix()
	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
		case !t.running.Load():
		default:
			t.logError(err, "accept")
			time.Sleep(t.pollInterval)
		}
		return nil, false
	}
	return conn, true
}

// serve runs a session and returns true when the stop command was
// received.
func (t *T) serve(conn *net.UnixConn) bool {
	defer func() { _ = conn.Close() }()
	l := t.log.With().Str("conn", uuid.New().String()).Logger()
	if uid, pid, err := peerCred(conn); err == nil {
		l = l.With().Int("peer_uid", uid).Int("peer_pid", pid).Logger()
	}
	l.Debug().Msg("session opened")
	b := make([]byte, maxCommandSize)
	for t.running.Load() {
		if err := conn.SetReadDeadline(time.Now().Add(t.pollInterval)); err != nil {
			l.Warn().Err(err).Msg("set read deadline")
			return false
		}
		n, err := conn.Read(b)
		if n > 0 {
			cmd := strings.TrimSpace(strings.ToValidUTF8(string(b[:n]), "\uFFFD"))
			reply, stop := t.command(cmd)
			l.Info().Str("cmd", cmd).Msg(reply)
			if _, err := conn.Write([]byte(reply)); err != nil {
				l.Warn().Err(err).Msg("write reply")
			}
			if stop {
				return true
			}
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				continue
			case errors.Is(err, io.EOF):
				l.Debug().Msg("session closed by peer")
			default:
				l.Warn().Err(err).Msg("read command")
			}
			return false
		}
	}
	return false
}

func (t *T) command(cmd string) (reply string, stop bool) {
	switch cmd {
	case CmdStop:
		lsnrmetric.Commands.WithLabelValues(CmdStop).Inc()
		return fmt.Sprintf("Stopping %s.", t.name), true
	default:
		lsnrmetric.Commands.WithLabelValues("unknown").Inc()
		return ReplyUnknown, false
	}
}

func (t *T) logError(err error, msg string) {
	if t.errLimiter.Allow() {
		t.log.Error().Err(err).Msg(msg)
	}
}
