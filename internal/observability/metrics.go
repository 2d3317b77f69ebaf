// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcome labels.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid"
	LoginLocked      = "locked"
	LoginRateLimited = "rate_limited"
	LoginError       = "error"
)

// Metrics contains the console's Prometheus metrics.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	DirectoryQueries *prometheus.CounterVec
	DirectoryLatency prometheus.Histogram
}

// NewMetrics creates and registers the console metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admindesk_login_attempts_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		DirectoryQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admindesk_directory_queries_total",
				Help: "Total number of directory listing queries by status",
			},
			[]string{"status"},
		),
		DirectoryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "admindesk_directory_query_seconds",
				Help:    "Latency of directory listing queries",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(m.LoginAttempts)
	reg.MustRegister(m.DirectoryQueries)
	reg.MustRegister(m.DirectoryLatency)

	return m
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(outcome string) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveDirectoryQuery implements directory.Observer.
func (m *Metrics) ObserveDirectoryQuery(status string, elapsed time.Duration) {
	m.DirectoryQueries.WithLabelValues(status).Inc()
	m.DirectoryLatency.Observe(elapsed.Seconds())
}
