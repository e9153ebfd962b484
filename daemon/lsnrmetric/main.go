// Package lsnrmetric holds the prometheus collectors of the worker pools,
// the listener loops, the connection handler and the control channel.
package lsnrmetric

import "github.com/prometheus/client_golang/prometheus"

var (
	PoolQueued = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "httpd_pool_queued_jobs",
			Help: "The number of jobs waiting for a worker.",
		},
		[]string{"pool"},
	)

	PoolBusy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "httpd_pool_busy_workers",
			Help: "The number of workers executing a job.",
		},
		[]string{"pool"},
	)

	PoolJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_pool_jobs_total",
			Help: "A counter of executed jobs with pool and result (ok, panic).",
		},
		[]string{"pool", "result"},
	)

	Accepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_listener_accepted_total",
			Help: "A counter of accepted connections by listener.",
		},
		[]string{"listener"},
	)

	AcceptErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_listener_accept_errors_total",
			Help: "A counter of accept errors other than poll timeouts by listener.",
		},
		[]string{"listener"},
	)

	HandshakeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_listener_handshake_failures_total",
			Help: "A counter of failed secure handshakes by listener.",
		},
		[]string{"listener"},
	)

	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_requests_total",
			Help: "A counter of handled connections with listener and result.",
		},
		[]string{"listener", "result"},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpd_control_commands_total",
			Help: "A counter of control channel commands.",
		},
		[]string{"command"},
	)
)

const (
	ResultOK         = "ok"
	ResultPanic      = "panic"
	ResultAnswered   = "answered"
	ResultDropped    = "dropped"
	ResultReadError  = "read_error"
	ResultWriteError = "write_error"
)

func init() {
	prometheus.MustRegister(
		PoolQueued,
		PoolBusy,
		PoolJobs,
		Accepted,
		AcceptErrors,
		HandshakeFailures,
		Requests,
		Commands,
	)
}
