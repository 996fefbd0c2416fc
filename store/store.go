// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/metrics"
	"github.com/VA7DBI/tokenAPI/tokens"
)

// Backend is a tokens.Store with a lifecycle.
type Backend interface {
	tokens.Store
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return NewPostgresTokenStore(ctx, cfg)
	case config.BackendRedis:
		return NewRedisTokenStore(ctx, cfg)
	case config.BackendMemory:
		return NewMemoryTokenStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// observe records the duration and outcome of one storage round-trip.
func observe(backend, op string, start time.Time, err error) {
	metrics.StoreDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(backend, op).Inc()
	}
}
