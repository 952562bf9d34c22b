// Package di wires the pattern engine together. The object graph is declared as Wire provider
// sets in wire_sets.go and assembled by InitializeContainer.
package di

import (
	"context"
	"errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamlog-backend/internal/config"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/service/insights"
	"dreamlog-backend/internal/service/patterns"
)

// Container holds the long-lived components shared by the API and Lambda entrypoints.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	LogLevel zap.AtomicLevel
	Metrics  *observability.Collector
	Tracer   *observability.TracerProvider

	Stores   Stores
	Analyzer *patterns.Analyzer
	Insights *insights.Service
	Router   *chi.Mux
}

func provideContainer(
	cfg *config.Config,
	logging Logging,
	metrics *observability.Collector,
	tracer *observability.TracerProvider,
	stores Stores,
	analyzer *patterns.Analyzer,
	reader *insights.Service,
	router *chi.Mux,
) *Container {
	return &Container{
		Config:   cfg,
		Logger:   logging.Logger,
		LogLevel: logging.Level,
		Metrics:  metrics,
		Tracer:   tracer,
		Stores:   stores,
		Analyzer: analyzer,
		Insights: reader,
		Router:   router,
	}
}

// GetRouter returns the HTTP handler.
func (c *Container) GetRouter() *chi.Mux {
	return c.Router
}

// ApplyConfig applies the parts of a reloaded configuration that can change at runtime.
func (c *Container) ApplyConfig(cfg *config.Config) {
	if err := observability.SetLevel(c.LogLevel, cfg.Logging.Level); err != nil {
		c.Logger.Warn("ignoring invalid log level", zap.String("level", cfg.Logging.Level), zap.Error(err))
		return
	}
	c.Logger.Info("log level applied", zap.String("level", cfg.Logging.Level))
}

// Shutdown flushes tracing and the logger.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Sync on stderr/stdout commonly fails with EINVAL; it is not worth reporting.
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
