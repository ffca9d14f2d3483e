// Package sandbox issues peer tokens for development rooms without an
// application backend.
package sandbox

import (
	"fmt"
	"net/http"
	"time"

	"rillcast/internal/core/ports"
	"rillcast/pkg/config"
	"rillcast/pkg/retry"

	"go.uber.org/zap"
)

// TokenObserver receives one call per issuance attempt.
type TokenObserver interface {
	ObserveToken(issuer string, duration time.Duration, ok bool)
}

// NewIssuer returns the issuer selected by sandbox.mode.
func NewIssuer(cfg *config.Config, observer TokenObserver, logger *zap.SugaredLogger) (ports.Sandbox, error) {
	switch cfg.Sandbox.Mode {
	case "http":
		if !cfg.AppIDConfigured() {
			logger.Warnw("sandbox app id is not configured, token requests will fail",
				"app_id", cfg.Sandbox.AppID,
			)
		}
		rc := retry.DefaultConfig()
		rc.MaxAttempts = cfg.Sandbox.RetryAttempts + 1
		return NewHTTPIssuer(HTTPIssuerConfig{
			BaseURL: cfg.Sandbox.BaseURL,
			AppID:   cfg.Sandbox.AppID,
			Client:  &http.Client{Timeout: cfg.Sandbox.RequestTimeout},
			Retry:   rc,
		}, observer, logger), nil
	case "local":
		return NewLocalIssuer([]byte(cfg.Sandbox.SigningSecret), cfg.Sandbox.TokenTTL, observer, logger), nil
	default:
		return nil, fmt.Errorf("unknown sandbox mode %q", cfg.Sandbox.Mode)
	}
}
