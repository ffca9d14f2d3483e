// Package identity provides the demo sign-in backend.
package identity

import (
	"context"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"go.uber.org/zap"
)

type DemoConfig struct {
	User         domain.User
	SignInDelay  time.Duration
	SignOutDelay time.Duration
}

// DemoProvider signs in a fixed user after a configurable delay.
type DemoProvider struct {
	cfg    DemoConfig
	logger *zap.SugaredLogger
}

var _ ports.IdentityProvider = (*DemoProvider)(nil)

func NewDemoProvider(cfg DemoConfig, logger *zap.SugaredLogger) *DemoProvider {
	return &DemoProvider{cfg: cfg, logger: logger}
}

func (p *DemoProvider) SignIn(ctx context.Context) (*domain.User, error) {
	if err := wait(ctx, p.cfg.SignInDelay); err != nil {
		return nil, err
	}
	user := p.cfg.User
	p.logger.Debugw("demo identity signed in", "user_id", user.ID)
	return &user, nil
}

func (p *DemoProvider) SignOut(ctx context.Context) error {
	if err := wait(ctx, p.cfg.SignOutDelay); err != nil {
		return err
	}
	p.logger.Debugw("demo identity signed out", "user_id", p.cfg.User.ID)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
