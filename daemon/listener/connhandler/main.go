/*
Package connhandler serves one accepted connection:

 1. read the bytes currently available, bounded by a read deadline
 2. drop the connection unless the text ends with the request terminator
 3. pass the request to the handler
 4. write the response verbatim and close the connection

There is no retry and nothing is answered to a dropped request.
*/
package connhandler

import (
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opensvc/httpd/daemon/lsnrmetric"
)

type (
	// Handler turns a request into a complete response. It is called
	// concurrently.
	Handler interface {
		Handle(request string) []byte
	}

	T struct {
		name        string
		handler     Handler
		readTimeout time.Duration
		log         zerolog.Logger
	}

	// Result is the outcome of Serve
	Result string
)

const (
	// Terminator ends a complete request
	Terminator = "\r\n\r\n"

	// MaxRequestSize is the size of the single read of a request
	MaxRequestSize = 8192

	Answered   Result = lsnrmetric.ResultAnswered
	Dropped    Result = lsnrmetric.ResultDropped
	ReadError  Result = lsnrmetric.ResultReadError
	WriteError Result = lsnrmetric.ResultWriteError
)

// New returns a connection handler for the listener named name. A zero
// readTimeout disables the read deadline.
func New(name string, h Handler, readTimeout time.Duration, log zerolog.Logger) *T {
	return &T{
		name:        name,
		handler:     h,
		readTimeout: readTimeout,
		log:         log,
	}
}

// Serve handles conn and closes it.
func (t *T) Serve(conn net.Conn) Result {
	log := t.log.With().Str("conn", uuid.NewString()).Str("peer", conn.RemoteAddr().String()).Logger()
	result := t.serve(conn, log)
	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Msg("close")
	}
	lsnrmetric.Requests.WithLabelValues(t.name, string(result)).Inc()
	return result
}

func (t *T) serve(conn net.Conn, log zerolog.Logger) Result {
	if t.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			log.Warn().Err(err).Msg("set read deadline")
		}
	}
	b := make([]byte, MaxRequestSize)
	n, err := conn.Read(b)
	if n == 0 {
		log.Debug().Err(err).Msg("drop connection: nothing read")
		return ReadError
	}
	request := strings.ToValidUTF8(string(b[:n]), "\uFFFD")
	log.Debug().Msgf("received %d bytes", n)
	if !strings.HasSuffix(request, Terminator) {
		log.Debug().Msg("drop connection: incomplete request")
		return Dropped
	}
	response := t.handler.Handle(request)
	if _, err := conn.Write(response); err != nil {
		log.Warn().Err(err).Msg("write response")
		return WriteError
	}
	log.Debug().Msgf("sent %d bytes response", len(response))
	return Answered
}
