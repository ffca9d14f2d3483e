package services

import (
	"context"
	"fmt"
	"sync"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"go.uber.org/zap"
)

// PermissionGate tracks camera and microphone permission. It never returns
// errors: a failed query or request is logged and leaves the last known
// statuses in place.
type PermissionGate struct {
	provider ports.PermissionProvider
	settings ports.SettingsOpener
	logger   *zap.SugaredLogger

	mu    sync.RWMutex
	state domain.PermissionState
}

func NewPermissionGate(provider ports.PermissionProvider, settings ports.SettingsOpener, logger *zap.SugaredLogger) *PermissionGate {
	return &PermissionGate{
		provider: provider,
		settings: settings,
		logger:   logger,
		state: domain.PermissionState{
			Camera:     domain.PermissionUndetermined,
			Microphone: domain.PermissionUndetermined,
		},
	}
}

func (g *PermissionGate) State() domain.PermissionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// CheckPermissions reads the current grants without prompting and reports
// whether both are granted.
func (g *PermissionGate) CheckPermissions(ctx context.Context) bool {
	g.setLoading(true)

	camera, err := g.provider.Query(ctx, domain.CapabilityCamera)
	if err != nil {
		return g.fail("error checking permissions", err)
	}
	mic, err := g.provider.Query(ctx, domain.CapabilityMicrophone)
	if err != nil {
		return g.fail("error checking permissions", err)
	}

	return g.settle(queryStatus(camera), queryStatus(mic))
}

// RequestPermissions prompts for the camera, then the microphone. When a
// denied permission can no longer be prompted for, the settings opener is
// invoked.
func (g *PermissionGate) RequestPermissions(ctx context.Context) bool {
	g.setLoading(true)

	camera, err := g.provider.Request(ctx, domain.CapabilityCamera)
	if err != nil {
		return g.fail("error requesting permissions", err)
	}
	mic, err := g.provider.Request(ctx, domain.CapabilityMicrophone)
	if err != nil {
		return g.fail("error requesting permissions", err)
	}

	allGranted := g.settle(requestStatus(camera), requestStatus(mic))
	if !allGranted && (blocked(camera) || blocked(mic)) {
		g.logger.Warnw("permission permanently denied, directing user to settings",
			"camera_can_ask", camera.CanAskAgain,
			"microphone_can_ask", mic.CanAskAgain,
		)
		if g.settings != nil {
			g.settings.OpenSettings(ctx)
		}
	}
	return allGranted
}

func (g *PermissionGate) settle(camera, mic domain.PermissionStatus) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = g.state.WithStatuses(camera, mic)
	g.state.IsLoading = false
	return g.state.AllGranted
}

func (g *PermissionGate) fail(msg string, err error) bool {
	g.logger.Errorw(msg, "error", fmt.Errorf("permission provider: %w", err))
	g.setLoading(false)
	return false
}

func (g *PermissionGate) setLoading(loading bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.IsLoading = loading
}

func queryStatus(r ports.PermissionResponse) domain.PermissionStatus {
	switch {
	case r.Granted:
		return domain.PermissionGranted
	case r.CanAskAgain:
		return domain.PermissionUndetermined
	default:
		return domain.PermissionDenied
	}
}

func requestStatus(r ports.PermissionResponse) domain.PermissionStatus {
	if r.Granted {
		return domain.PermissionGranted
	}
	return domain.PermissionDenied
}

func blocked(r ports.PermissionResponse) bool {
	return !r.Granted && !r.CanAskAgain
}
