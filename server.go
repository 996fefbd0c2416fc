// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/docs"
	"github.com/VA7DBI/tokenAPI/middleware"
	"github.com/VA7DBI/tokenAPI/store"
	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// newRouter wires the token API, health, swagger and metrics routes.
func newRouter(cfg *config.Config, logger *zap.Logger, backend store.Backend) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics())

	api := NewTokenAPI(tokens.NewService(backend, logger), logger)
	guard := middleware.NewAPIKeyMiddleware(cfg)

	g := r.Group("/api", guard.Handler())
	g.POST("/tokens", api.CreateTokenHandler)
	g.GET("/tokens", api.ListTokensHandler)

	// These endpoints remain public
	h := &healthHandler{backend: backend}
	r.GET("/health", h.healthCheck)

	docs.SwaggerInfo.Host = cfg.API.SwaggerHost
	docs.SwaggerInfo.BasePath = cfg.API.BasePath
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	return r
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type healthHandler struct {
	backend store.Backend
}

// @Summary     Health check endpoint
// @Description Get API health status, including the storage backend
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Failure     503 {object} HealthResponse
// @Router      /health [get]
func (h *healthHandler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Storage: h.backend.Name()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Storage: h.backend.Name()})
}
