// Package ctlcli is the client side of the control channel.
package ctlcli

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type (
	T struct {
		path    string
		timeout time.Duration
	}

	// Session is a control connection serving many commands
	Session struct {
		conn    net.Conn
		timeout time.Duration
	}
)

const (
	maxReplySize = 1024
)

var (
	// ErrBusy is returned by Stop when the control channel serves
	// another session, like an interactive ctl, and does not read our
	// command.
	ErrBusy = errors.New("control channel busy (another session open)")

	DefaultTimeout   = 3 * time.Second
	WaitStopTimeout  = 4 * time.Second
	WaitRunningDelay = 100 * time.Millisecond
)

// New returns a client of the control socket at path
func New(path string) *T {
	return &T{
		path:    path,
		timeout: DefaultTimeout,
	}
}

// Dial opens a control session
func (t *T) Dial() (*Session, error) {
	conn, err := net.DialTimeout("unix", t.path, t.timeout)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "dial %s", t.path)
	}
	return &Session{conn: conn, timeout: t.timeout}, nil
}

// Send sends cmd in a new session and returns the reply
func (t *T) Send(cmd string) (string, error) {
	s, err := t.Dial()
	if err != nil {
		return "", err
	}
	defer func() { _ = s.Close() }()
	return s.Send(cmd)
}

// Running returns true when a daemon accepts on the control socket
func (t *T) Running() bool {
	conn, err := net.DialTimeout("unix", t.path, t.timeout)
	if err != nil {
		log.Debug().Err(err).Msg("control socket not reachable")
		return false
	}
	_ = conn.Close()
	return true
}

// Stop sends the stop command and waits for the control socket to
// disappear. Stopping a daemon not running is not an error. ErrBusy is
// returned when no reply comes before the timeout.
func (t *T) Stop() (string, error) {
	if !t.Running() {
		log.Debug().Msg("already stopped")
		return "", nil
	}
	reply, err := t.Send("stop")
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", pkgerrors.Wrap(ErrBusy, t.path)
		}
		return "", err
	}
	if !strings.HasPrefix(reply, "Stopping") {
		return reply, fmt.Errorf("unexpected stop reply: %s", reply)
	}
	if err := waitForBool(WaitStopTimeout, WaitRunningDelay, false, t.Running); err != nil {
		return reply, errors.New("daemon still running after stop")
	}
	return reply, nil
}

// Send writes cmd and waits for the reply
func (s *Session) Send(cmd string) (string, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", err
	}
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return "", pkgerrors.Wrap(err, "send command")
	}
	b := make([]byte, maxReplySize)
	n, err := s.conn.Read(b)
	if err != nil {
		return "", pkgerrors.Wrap(err, "read reply")
	}
	return string(b[:n]), nil
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func waitForBool(timeout, retryDelay time.Duration, expected bool, f func() bool) error {
	max := time.After(timeout)
	for {
		select {
		case <-max:
			return errors.New("timeout reached")
		default:
			if f() == expected {
				return nil
			}
			<-time.After(retryDelay)
		}
	}
}
