// Package service runs the auxiliary HTTP endpoints (healthz and prometheus
// metrics) that live alongside a test run.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthzConfig configures the healthz endpoint.
type HealthzConfig struct {
	Enabled bool
	Addr    string
	Port    int
}

// Config holds configuration for creating a new service
type Config struct {
	Log     log.Logger
	Healthz HealthzConfig
	Metrics opmetrics.CLIConfig
}

type Service struct {
	log      log.Logger
	cfg      Config
	registry *prometheus.Registry

	healthz *HealthzServer
	metrics *httputil.HTTPServer
}

// New creates the service and its metrics registry. Nothing listens until Start.
func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Service{
		log:      cfg.Log,
		cfg:      cfg,
		registry: opmetrics.NewRegistry(),
	}
}

// Registry is where run metrics are registered, served or not.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// HealthzAddr returns the bound healthz address, or nil when disabled.
func (s *Service) HealthzAddr() net.Addr {
	if s.healthz == nil {
		return nil
	}
	return s.healthz.Addr()
}

// MetricsAddr returns the bound metrics address, or nil when disabled.
func (s *Service) MetricsAddr() net.Addr {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Addr()
}

func (s *Service) Start(ctx context.Context) error {
	s.log.Info("service starting")

	if s.cfg.Healthz.Enabled {
		addr := net.JoinHostPort(s.cfg.Healthz.Addr, strconv.Itoa(s.cfg.Healthz.Port))
		s.log.Info("starting healthz server", "addr", addr)
		s.healthz = NewHealthzServer(s.log)
		if err := s.healthz.Start(addr); err != nil {
			s.healthz = nil
			return fmt.Errorf("failed to start healthz server: %w", err)
		}
	}

	if s.cfg.Metrics.Enabled {
		s.log.Info("starting metrics server", "addr", s.cfg.Metrics.ListenAddr, "port", s.cfg.Metrics.ListenPort)
		metricsServer, err := opmetrics.StartServer(s.registry, s.cfg.Metrics.ListenAddr, s.cfg.Metrics.ListenPort)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to start metrics server: %w", err), s.Stop(ctx))
		}
		s.log.Info("started metrics server", "endpoint", metricsServer.Addr())
		s.metrics = metricsServer
	}

	s.log.Info("service started")
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("service shutting down")

	var result error
	if s.healthz != nil {
		if err := s.healthz.Shutdown(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop healthz server: %w", err))
		}
		s.log.Info("healthz stopped")
	}
	if s.metrics != nil {
		if err := s.metrics.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
	return result
}
