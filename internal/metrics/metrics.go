package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label "result"
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OTPIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total number of one-time codes issued and sent.",
		},
		[]string{"purpose", "result"},
	)

	OTPVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of one-time code verification attempts.",
		},
		[]string{"purpose", "result"},
	)

	OTPExpiredSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "otp_expired_swept_total",
			Help: "Total number of expired one-time codes removed by the sweeper.",
		},
	)

	CredentialFlowCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_flow_completions_total",
			Help: "Total number of registration and password reset completions.",
		},
		[]string{"purpose", "result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of open websocket connections on this instance.",
		},
	)
)

var registerOnce sync.Once

// MustRegister регистрирует метрики в глобальном реестре (один раз)
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			OTPIssuedTotal,
			OTPVerificationsTotal,
			OTPExpiredSweptTotal,
			CredentialFlowCompletionsTotal,
			LoginsTotal,
			WebSocketConnections,
		)
	})
}

// Result переводит ошибку в значение label "result"
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
