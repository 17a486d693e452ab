// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricPrefix prefixes every exported metric name.
const MetricPrefix = "zag_"

type metrics struct {
	requests       *prometheus.CounterVec
	rangeCache     *prometheus.CounterVec
	channelsOpen   prometheus.Gauge
	livePoints     prometheus.Counter
	liveDropped    prometheus.Counter
	ingestedPoints prometheus.Counter
	ingestLimited  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPrefix + "http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		rangeCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPrefix + "range_cache_total",
			Help: "Historical range cache lookups by result",
		}, []string{"result"}),
		channelsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: MetricPrefix + "live_channels",
			Help: "Open live channels",
		}),
		livePoints: f.NewCounter(prometheus.CounterOpts{
			Name: MetricPrefix + "live_points_total",
			Help: "Live points queued to channels",
		}),
		liveDropped: f.NewCounter(prometheus.CounterOpts{
			Name: MetricPrefix + "live_points_dropped_total",
			Help: "Live points dropped because a channel was full",
		}),
		ingestedPoints: f.NewCounter(prometheus.CounterOpts{
			Name: MetricPrefix + "ingested_points_total",
			Help: "Points accepted by the ingest endpoint",
		}),
		ingestLimited: f.NewCounter(prometheus.CounterOpts{
			Name: MetricPrefix + "ingest_rate_limited_total",
			Help: "Ingest requests rejected by the rate limiter",
		}),
	}
}
