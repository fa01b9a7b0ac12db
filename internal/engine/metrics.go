package engine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monger_engine_requests_total",
			Help: "Total dialogue engine calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	engineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monger_engine_request_duration_seconds",
			Help:    "Histogram of dialogue engine call durations.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(engineRequests, engineDuration)
}

func observeCall(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	engineRequests.WithLabelValues(op, outcome).Inc()
	engineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Stats is a small rolling summary of engine calls, surfaced in diagnostic
// mode alongside the prometheus collectors.
type Stats struct {
	mu          sync.Mutex
	totalCalls  int
	failures    int
	lastError   string
	lastLatency time.Duration
}

var callStats Stats

func recordCall(latency time.Duration, err error) {
	callStats.mu.Lock()
	defer callStats.mu.Unlock()
	callStats.totalCalls++
	callStats.lastLatency = latency
	if err != nil {
		callStats.failures++
		callStats.lastError = err.Error()
	}
}

type StatsSummary struct {
	TotalCalls    int    `json:"totalCalls"`
	TotalFailures int    `json:"totalFailures"`
	LastLatencyMS int64  `json:"lastLatencyMs"`
	LastError     string `json:"lastError,omitempty"`
}

func CallStats() StatsSummary {
	callStats.mu.Lock()
	defer callStats.mu.Unlock()
	return StatsSummary{
		TotalCalls:    callStats.totalCalls,
		TotalFailures: callStats.failures,
		LastLatencyMS: callStats.lastLatency.Milliseconds(),
		LastError:     callStats.lastError,
	}
}
