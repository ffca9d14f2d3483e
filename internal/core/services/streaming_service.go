package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
	"rillcast/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// StreamingObserver receives operation outcomes, e.g. for metrics.
type StreamingObserver interface {
	ObserveJoin(role Role, duration time.Duration, err error)
	ObserveLeave(err error)
}

// StreamingState is what screens or API clients render.
type StreamingState struct {
	IsConnected  bool                `json:"is_connected"`
	IsConnecting bool                `json:"is_connecting"`
	IsCameraOn   bool                `json:"is_camera_on"`
	IsMicOn      bool                `json:"is_mic_on"`
	Error        string              `json:"error,omitempty"`
	RemotePeers  []domain.RemotePeer `json:"remote_peers"`
}

// StreamingService is the session wrapper over the media SDK. It keeps only
// the connecting flag and the last user-facing error; everything else is
// read from the SDK.
type StreamingService struct {
	sdk      ports.MediaSDK
	session  *SessionStore
	appID    string
	observer StreamingObserver
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	connecting bool
	lastErr    string
}

func NewStreamingService(
	sdk ports.MediaSDK,
	session *SessionStore,
	appID string,
	observer StreamingObserver,
	logger *zap.SugaredLogger,
) *StreamingService {
	return &StreamingService{
		sdk:      sdk,
		session:  session,
		appID:    appID,
		observer: observer,
		logger:   logger,
	}
}

func (s *StreamingService) State() StreamingState {
	s.mu.Lock()
	connecting, lastErr := s.connecting, s.lastErr
	s.mu.Unlock()

	peers := s.sdk.RemotePeers()
	if peers == nil {
		peers = []domain.RemotePeer{}
	}
	return StreamingState{
		IsConnected:  s.sdk.PeerStatus() == domain.PeerStatusConnected,
		IsConnecting: connecting,
		IsCameraOn:   s.sdk.IsCameraOn(),
		IsMicOn:      s.sdk.IsMicrophoneOn(),
		Error:        lastErr,
		RemotePeers:  peers,
	}
}

// StartBroadcast enables the camera, obtains a token and joins roomName as
// host. It is a no-op while a join is in flight or the SDK is connected.
func (s *StreamingService) StartBroadcast(ctx context.Context, roomName, displayName string) (err error) {
	if !s.acquire() {
		s.logger.Debugw("start broadcast ignored, already connected or connecting", "room", roomName)
		return nil
	}
	defer s.release()

	ctx, span := tracing.TraceWebRTC(ctx, "start_broadcast", displayName, roomName)
	defer span.End()

	start := time.Now()
	defer func() {
		s.finish(ctx, RoleHost, start, err, "failed to start broadcast")
	}()

	if err := validateJoin(roomName, displayName); err != nil {
		return err
	}
	if err := s.sdk.PrepareCamera(ctx, ports.CameraOptions{CameraEnabled: true}); err != nil {
		return fmt.Errorf("prepare camera: %w", err)
	}

	token, err := s.token(ctx, roomName, displayName)
	if err != nil {
		return err
	}

	if err := s.sdk.JoinRoom(ctx, ports.JoinRequest{
		PeerToken: token,
		AppID:     s.appID,
		Metadata:  domain.PeerMetadata{DisplayName: displayName, IsHost: true},
	}); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	s.session.StartBroadcast(domain.RoomID(roomName), token)
	s.logger.Infow("broadcast started", "room", roomName, "display_name", displayName)
	return nil
}

// JoinAsViewer joins roomName without publishing local media.
func (s *StreamingService) JoinAsViewer(ctx context.Context, roomName, displayName string) (err error) {
	if !s.acquire() {
		s.logger.Debugw("join ignored, already connected or connecting", "room", roomName)
		return nil
	}
	defer s.release()

	ctx, span := tracing.TraceWebRTC(ctx, "join_as_viewer", displayName, roomName)
	defer span.End()

	start := time.Now()
	defer func() {
		s.finish(ctx, RoleViewer, start, err, "failed to join stream")
	}()

	if err := validateJoin(roomName, displayName); err != nil {
		return err
	}

	token, err := s.token(ctx, roomName, displayName)
	if err != nil {
		return err
	}

	if err := s.sdk.JoinRoom(ctx, ports.JoinRequest{
		PeerToken: token,
		AppID:     s.appID,
		Metadata:  domain.PeerMetadata{DisplayName: displayName, IsHost: false},
	}); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	s.logger.Infow("joined stream", "room", roomName, "display_name", displayName)
	return nil
}

// LeaveRoom is best effort: failures are recorded and logged, never returned.
func (s *StreamingService) LeaveRoom(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "webrtc.leave_room")
	defer span.End()

	s.setError("")
	err := s.sdk.LeaveRoom(ctx)
	if s.observer != nil {
		s.observer.ObserveLeave(err)
	}
	if err != nil {
		s.setError(errorMessage(err, "failed to leave room"))
		tracing.RecordError(ctx, err)
		s.logger.Errorw("leave room error", "error", err)
		return
	}

	s.session.EndBroadcast()
	s.logger.Info("left room")
}

func (s *StreamingService) ToggleCamera(ctx context.Context) error {
	return s.sdk.ToggleCamera(ctx)
}

func (s *StreamingService) ToggleMicrophone(ctx context.Context) error {
	return s.sdk.ToggleMicrophone(ctx)
}

// SwitchCamera moves to the next camera in the SDK's list, wrapping around.
// It does nothing with fewer than two cameras or no current camera.
func (s *StreamingService) SwitchCamera(ctx context.Context) error {
	cameras := s.sdk.Cameras()
	current := s.sdk.CurrentCamera()
	if len(cameras) < 2 || current == nil {
		return nil
	}

	next := NextCamera(cameras, current.ID)
	s.logger.Debugw("switching camera", "from", current.ID, "to", next.ID)
	return s.sdk.SwitchCamera(ctx, next.ID)
}

// NextCamera returns the camera after currentID, wrapping to the first. An
// unknown currentID selects the first camera. cameras must not be empty.
func NextCamera(cameras []domain.Camera, currentID string) domain.Camera {
	idx := -1
	for i, c := range cameras {
		if c.ID == currentID {
			idx = i
			break
		}
	}
	return cameras[(idx+1)%len(cameras)]
}

func (s *StreamingService) token(ctx context.Context, roomName, displayName string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "sandbox.peer_token")
	defer span.End()
	span.SetAttributes(attribute.String("room", roomName))

	token, err := s.sdk.PeerToken(ctx, roomName, displayName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPeerTokenUnavailable, err)
	}
	if token == "" {
		return "", domain.ErrPeerTokenUnavailable
	}
	return token, nil
}

// acquire claims the single join slot.
func (s *StreamingService) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.sdk.PeerStatus()
	if s.connecting || status == domain.PeerStatusConnected || status == domain.PeerStatusConnecting {
		return false
	}
	s.connecting = true
	s.lastErr = ""
	return true
}

func (s *StreamingService) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
}

func (s *StreamingService) finish(ctx context.Context, role Role, start time.Time, err error, fallback string) {
	if s.observer != nil {
		s.observer.ObserveJoin(role, time.Since(start), err)
	}
	if err == nil {
		return
	}
	s.setError(errorMessage(err, fallback))
	tracing.RecordError(ctx, err)
	s.logger.Errorw(fallback, "role", role, "error", err)
}

func (s *StreamingService) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}

func validateJoin(roomName, displayName string) error {
	if strings.TrimSpace(roomName) == "" {
		return domain.ErrRoomNameRequired
	}
	if strings.TrimSpace(displayName) == "" {
		return domain.ErrDisplayNameRequired
	}
	return nil
}

func errorMessage(err error, fallback string) string {
	if errors.Is(err, domain.ErrPeerTokenUnavailable) {
		return domain.ErrPeerTokenUnavailable.Error()
	}
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
