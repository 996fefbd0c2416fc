// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenapi_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenapi_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 12), // 1ms to ~2s
	}, []string{"method", "route"})

	// TokenOperations counts service operations by outcome ("ok" or an error kind).
	TokenOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenapi_token_operations_total",
		Help: "Total number of token create and list operations",
	}, []string{"operation", "outcome"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenapi_store_operation_duration_seconds",
		Help:    "Time spent in storage round-trips",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 12),
	}, []string{"backend", "operation"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenapi_store_errors_total",
		Help: "Total number of failed storage round-trips",
	}, []string{"backend", "operation"})
)
