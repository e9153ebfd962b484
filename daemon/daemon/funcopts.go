package daemon

import (
	"os"

	"github.com/opensvc/httpd/daemon/routinehelper"
	"github.com/opensvc/httpd/util/funcopt"
)

func WithRoutineTracer(o routinehelper.Tracer) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.SetTracer(o)
		t.tracer = o
		return nil
	})
}

// WithSignals sets the signals stopping the daemon
func WithSignals(sigs ...os.Signal) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*T)
		t.signals = sigs
		return nil
	})
}
