package lsnrctlux

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

// WithPath sets the unix socket path
func WithPath(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.path = s
		return nil
	})
}

// WithName sets the name announced in the stop reply
func WithName(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.name = s
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

// WithSignals sets the signals interrupting ListenBlock. No signal
// handler is installed when called without arguments.
func WithSignals(sigs ...os.Signal) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.signals = sigs
		return nil
	})
}

func WithLogger(l zerolog.Logger) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.log = l
		return nil
	})
}

func WithRoutineTracer(o routinehelper.Tracer) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.SetTracer(o)
		return nil
	})
}
