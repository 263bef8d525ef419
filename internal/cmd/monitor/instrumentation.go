package monitor

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tadox",
		Subsystem: "monitor",
		Name:      "http_requests_total",
		Help:      "total number of http requests",
	},
		[]string{"code", "method"},
	)

	requestDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "tadox",
		Subsystem: "monitor",
		Name:      "http_request_duration_seconds",
		Help:      "duration of http requests",
	},
		[]string{"code", "method"},
	)
)

// instrumentedTadoClient returns an http.Client that signs requests with ts
// and records request counts & latency for the Tado API.
func instrumentedTadoClient(ctx context.Context, ts oauth2.TokenSource, registry prometheus.Registerer) *http.Client {
	c := oauth2.NewClient(ctx, ts)
	c.Transport = promhttp.InstrumentRoundTripperCounter(requestCounter,
		promhttp.InstrumentRoundTripperDuration(requestDuration,
			c.Transport,
		),
	)
	if registry != nil {
		registry.MustRegister(requestCounter, requestDuration)
	}
	return c
}
