package identity

import (
	"context"
	"testing"
	"time"

	"rillcast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func demoConfig() DemoConfig {
	return DemoConfig{
		User: domain.User{ID: "user_1", Username: "demo_user", DisplayName: "Demo User"},
	}
}

func TestDemoProvider_SignIn(t *testing.T) {
	p := NewDemoProvider(demoConfig(), zaptest.NewLogger(t).Sugar())

	user, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user_1"), user.ID)
	assert.Equal(t, "Demo User", user.Name())

	// callers get their own copy
	user.DisplayName = "changed"
	again, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Demo User", again.DisplayName)

	assert.NoError(t, p.SignOut(context.Background()))
}

func TestDemoProvider_RespectsContext(t *testing.T) {
	cfg := demoConfig()
	cfg.SignInDelay = time.Hour
	cfg.SignOutDelay = time.Hour
	p := NewDemoProvider(cfg, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.SignIn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, p.SignOut(ctx), context.DeadlineExceeded)
}
