package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"rillcast/internal/app"
	"rillcast/internal/core/domain"
	"rillcast/internal/infrastructure/identity"
	"rillcast/internal/infrastructure/monitoring"
	"rillcast/internal/infrastructure/permissions"
	"rillcast/internal/infrastructure/repositories"
	"rillcast/internal/infrastructure/sandbox"
	"rillcast/internal/infrastructure/sdk"
	"rillcast/pkg/config"
	"rillcast/pkg/logger"
	"rillcast/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var configPaths = []string{
	"configs/config.yaml",
	"./configs/config.yaml",
	"/etc/rillcast/config.yaml",
	"config.yaml",
}

// loadConfig tries path, or the default search paths when path is empty.
// No file at all yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	var lastErr error
	for _, p := range configPaths {
		cfg, err := config.Load(p)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// runtime holds everything a subcommand needs, built from configuration.
type runtime struct {
	cfg       *config.Config
	zap       *zap.Logger
	log       *zap.SugaredLogger
	registry  *prometheus.Registry
	collector *monitoring.PrometheusCollector
	health    *monitoring.HealthChecker
	repos     *repositories.RepositoryFactory
	grants    *permissions.PromptProvider
	tracer    *tracing.TracerProvider
	app       *app.App
}

func newRuntime(cfg *config.Config, logFormat string, in io.Reader, out io.Writer) (*runtime, error) {
	if logFormat == "" {
		logFormat = cfg.Logging.Format
	}
	zl := logger.NewWithFile(cfg.Logging.Level, logFormat, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	log := zl.Sugar()

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "rillcast",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := monitoring.NewPrometheusCollector(registry)

	issuer, err := sandbox.NewIssuer(cfg, collector, log)
	if err != nil {
		return nil, err
	}

	mediaSDK, err := sdk.NewMediaSDK(cfg, sdk.Options{
		Sandbox:        issuer,
		SignalObserver: collector,
	}, log)
	if err != nil {
		return nil, err
	}

	repos := repositories.NewRepositoryFactory(cfg, log)
	health := monitoring.NewHealthChecker()
	health.AddCheck("directory", repos.HealthCheck, 2*time.Second)

	grants := permissions.NewPromptProvider(permissions.Mode(cfg.Permissions.Mode), cfg.Permissions.GrantsFile, in, out, log)

	a := app.New(app.Deps{
		Identity: identity.NewDemoProvider(identity.DemoConfig{
			User: domain.User{
				ID:          domain.UserID(cfg.Auth.UserID),
				Username:    cfg.Auth.Username,
				DisplayName: cfg.Auth.DisplayName,
				AvatarURL:   cfg.Auth.AvatarURL,
			},
			SignInDelay:  cfg.Auth.SignInDelay,
			SignOutDelay: cfg.Auth.SignOutDelay,
		}, log),
		Permissions:  grants,
		Settings:     permissions.NewSettingsNotice(cfg.Permissions.GrantsFile, out, log),
		SDK:          mediaSDK,
		Streams:      repos.CreateStreamRepository(),
		Metrics:      collector,
		AppID:        cfg.Sandbox.AppID,
		ListCacheTTL: cfg.Directory.ListCacheTTL,
		Logger:       log,
	})

	return &runtime{
		cfg:       cfg,
		zap:       zl,
		log:       log,
		registry:  registry,
		collector: collector,
		health:    health,
		repos:     repos,
		grants:    grants,
		tracer:    tracer,
		app:       a,
	}, nil
}

// close leaves any room and releases resources.
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Server.ShutdownTimeout)
	defer cancel()

	r.app.Leave(ctx)
	if err := r.app.Close(); err != nil {
		r.log.Errorw("error closing media SDK", "error", err)
	}
	if err := r.repos.Close(); err != nil {
		r.log.Errorw("error closing repository factory", "error", err)
	}
	if err := r.tracer.Shutdown(ctx); err != nil {
		r.log.Errorw("error shutting down tracer", "error", err)
	}
	_ = r.zap.Sync()
}
