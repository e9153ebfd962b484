package lsnrhttp

import (
	"time"

	"github.com/opensvc/httpd/core/handling"
	"github.com/opensvc/httpd/daemon/listener/lsnrpoll"
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

// WithSecure sets the step run on each accepted connection before it is
// served. Used by the secured listener.
func WithSecure(f lsnrpoll.SecureFunc) funcopt.O {
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

func WithRoutineTracer(o routinehelper.Tracer) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.SetTracer(o)
		t.tracer = o
		return nil
	})
}
