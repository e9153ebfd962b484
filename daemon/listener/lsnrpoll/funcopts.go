package lsnrpoll

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/opensvc/httpd/daemon/listener/connhandler"
	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

func WithName(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.name = s
		return nil
	})
}

// WithAddr sets the ip:port to bind
func WithAddr(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.addr = s
		return nil
	})
}

// WithListener sets an already bound listener, WithAddr is then ignored
func WithListener(l Listener) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.listener = l
		return nil
	})
}

// WithExecutor sets the executor of the connection jobs
func WithExecutor(e Executor) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.executor = e
		return nil
	})
}

// WithHandler sets the handling function shared by all connection jobs
func WithHandler(h connhandler.Handler) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.handler = h
		return nil
	})
}

// WithSecure sets the step securing each accepted connection before
// it is served
func WithSecure(f SecureFunc) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.secure = f
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
