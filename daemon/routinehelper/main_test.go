package routinehelper_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/daemon/routinehelper"
)

type (
	A struct {
		routinehelper.TT
	}
)

func TestTracer(t *testing.T) {
	a := &A{TT: *routinehelper.NewTracer()}
	require.Equal(t, 0, a.TraceRDump().Count)

	nb := 5
	release := make(chan bool)
	var started, done sync.WaitGroup
	for i := 0; i < nb; i++ {
		for _, name := range []string{"foo", "bar"} {
			name := name
			started.Add(1)
			done.Add(1)
			go func() {
				defer done.Done()
				defer a.Trace(name)()
				started.Done()
				<-release
			}()
		}
	}
	started.Wait()
	stat := a.TraceRDump()
	t.Logf("all routines running: %#v", stat)
	assert.Equal(t, 2*nb, stat.Count)
	assert.Equal(t, 2*nb, stat.Max)
	assert.Equal(t, map[string]int{"foo": nb, "bar": nb}, stat.Details)

	close(release)
	done.Wait()
	stat = a.TraceRDump()
	assert.Equal(t, 0, stat.Count)
	assert.Equal(t, 2*nb, stat.Max)
	assert.Empty(t, stat.Details)
}

func TestTracerDoneFuncIsIdempotent(t *testing.T) {
	a := routinehelper.NewTracer()
	f := a.Trace("foo")
	f()
	f()
	require.Equal(t, 0, a.TraceRDump().Count)
}

func TestNoop(t *testing.T) {
	for name, tt := range map[string]*routinehelper.TT{
		"noop": routinehelper.NewTracerNoop(),
		"zero": {},
	} {
		t.Run(name, func(t *testing.T) {
			defer tt.Trace("foo")()
			require.Equal(t, routinehelper.Stat{}, tt.TraceRDump())
		})
	}
}
