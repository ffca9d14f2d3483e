// Package sdk selects the media SDK implementation from configuration.
package sdk

import (
	"fmt"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/internal/infrastructure/sdk/live"
	"rillcast/internal/infrastructure/sdk/noop"
	"rillcast/internal/infrastructure/sdk/simulated"
	"rillcast/pkg/config"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Options carries the collaborators shared by every implementation.
type Options struct {
	Sandbox        ports.Sandbox
	SignalObserver live.SignalObserver
	// Hub is shared by simulated instances; nil creates a private one.
	Hub *simulated.Hub
}

// NewMediaSDK returns the implementation named by media.mode. A live or
// simulated SDK whose sandbox cannot issue tokens is still returned; joins
// then fail with a token error.
func NewMediaSDK(cfg *config.Config, opts Options, logger *zap.SugaredLogger) (ports.MediaSDK, error) {
	cameras := Cameras(cfg)

	switch cfg.Media.Mode {
	case "live":
		logger.Infow("using live media SDK", "signal_url", cfg.Media.SignalURL, "cameras", len(cameras))
		return live.New(live.Config{
			SignalURL:      cfg.Media.SignalURL,
			ICEServers:     ICEServers(cfg),
			Cameras:        cameras,
			FrameInterval:  cfg.Media.FrameInterval,
			JoinTimeout:    cfg.Media.JoinTimeout,
			PLIInterval:    cfg.Media.PLIInterval,
			MaxMessageSize: cfg.Media.MaxMessageSize,
		}, opts.Sandbox, opts.SignalObserver, logger), nil
	case "simulated":
		logger.Infow("using simulated media SDK", "cameras", len(cameras))
		return simulated.New(simulated.Options{
			Hub:     opts.Hub,
			Sandbox: opts.Sandbox,
			Cameras: cameras,
		}), nil
	case "noop":
		logger.Warn("using no-op media SDK, streaming is disabled")
		return noop.New(), nil
	default:
		return nil, fmt.Errorf("unknown media mode %q", cfg.Media.Mode)
	}
}

func Cameras(cfg *config.Config) []domain.Camera {
	cameras := make([]domain.Camera, 0, len(cfg.Media.Cameras))
	for _, c := range cfg.Media.Cameras {
		facing := domain.Facing(c.Facing)
		switch facing {
		case domain.FacingFront, domain.FacingBack:
		default:
			facing = domain.FacingUnspecified
		}
		name := c.Name
		if name == "" {
			name = c.ID
		}
		cameras = append(cameras, domain.Camera{ID: c.ID, Name: name, Facing: facing})
	}
	return cameras
}

func ICEServers(cfg *config.Config) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(cfg.Media.ICEServers))
	for _, s := range cfg.Media.ICEServers {
		server := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}
	return servers
}
