// SPDX-License-Identifier: MIT

// Package api provides the HTTP control surface of the daemon.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/geek-md/media-downloader/internal/config"
	"github.com/geek-md/media-downloader/internal/jobs"
	"github.com/geek-md/media-downloader/internal/status"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Downloader runs one download job to completion.
type Downloader interface {
	Run(ctx context.Context, req jobs.Request) jobs.Result
}

// Remover performs the confined delete operations.
type Remover interface {
	DeleteFile(ctx context.Context, path string) error
	ClearDirectory(ctx context.Context, path string) (removed, failed int, err error)
}

// StatusSource reports the aggregated operation state.
type StatusSource interface {
	Snapshot() status.Snapshot
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.AppConfig
	downloader Downloader
	remover    Remover
	status     StatusSource
	startTime  time.Time
}

// New constructs a Server over the given engine, deleter and tracker.
func New(cfg config.AppConfig, d Downloader, rm Remover, st StatusSource) *Server {
	return &Server{
		cfg:        cfg,
		downloader: d,
		remover:    rm,
		status:     st,
		startTime:  time.Now(),
	}
}

// Router builds the chi router with the full middleware stack applied.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger)
	if s.cfg.RateLimitPerMinute > 0 {
		r.Use(RateLimit(s.cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/download", s.handleDownload)
		r.Post("/files/delete", s.handleDeleteFile)
		r.Post("/directories/clear", s.handleClearDirectory)
		r.Get("/status", s.handleStatus)
	})

	return r
}

// HTTPServer wraps the router in an http.Server with sane timeouts. The
// write timeout stays generous because /metrics scrapes can be slow on
// loaded hosts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
