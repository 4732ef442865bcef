package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	api "todoagent/pkg/api"
	. "todoagent/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := NewLokiLogger(config.Telem.ServiceName, config.Telem.LokiURL)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}

	defer logger.Sync()

	telemetry, err := InitTelemetry(TelemetryConfig{
		ServiceName:    config.Telem.ServiceName,
		ServiceVersion: config.Config.Version,
		Environment:    config.Config.Environment,
		MetricsPort:    config.Telem.MetricsPort,
		OTLPEndpoint:   config.Telem.OTLPEndpoint,
	})
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}

	defer telemetry.Shutdown(context.Background())

	metrics := NewAppMetrics(telemetry.PrometheusRegistry)
	metrics.StartSystemMetrics(ctx)

	server, err := api.NewServer(ctx, metrics, logger, config)
	if err != nil {
		logger.Logger.Fatal("Failed to build server", zap.Error(err))
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			stop()
		}
	}()

	LogInfo(ctx, logger, "Server started",
		zap.String("port", config.Server.Port),
		zap.String("environment", config.Config.Environment),
		zap.String("storage_driver", config.Store.Driver),
		zap.String("session_driver", config.Sess.Driver),
		zap.Bool("rate_limit_enabled", config.Server.RateLimitEnabled),
		zap.Bool("auth_enabled", config.Auth.JWTSecret != ""),
	)

	<-ctx.Done()
	logger.Logger.Info("Shutting down gracefully...")

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Logger.Error("Shutdown failed", zap.Error(err))
	}
}
