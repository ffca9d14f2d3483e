package ports

import (
	"context"

	"rillcast/internal/core/domain"
)

type CameraOptions struct {
	CameraEnabled bool
}

// JoinRequest carries everything the SDK needs to enter a room.
type JoinRequest struct {
	PeerToken string
	AppID     string
	Metadata  domain.PeerMetadata
}

type Camera interface {
	PrepareCamera(ctx context.Context, opts CameraOptions) error
	IsCameraOn() bool
	ToggleCamera(ctx context.Context) error
	SwitchCamera(ctx context.Context, cameraID string) error
	Cameras() []domain.Camera
	CurrentCamera() *domain.Camera
}

type Microphone interface {
	IsMicrophoneOn() bool
	ToggleMicrophone(ctx context.Context) error
}

type Connection interface {
	JoinRoom(ctx context.Context, req JoinRequest) error
	LeaveRoom(ctx context.Context) error
	PeerStatus() domain.PeerStatus
}

type Peers interface {
	RemotePeers() []domain.RemotePeer
}

// Sandbox issues peer tokens without a backend. An empty token with a nil
// error means issuance failed.
type Sandbox interface {
	PeerToken(ctx context.Context, roomName, displayName string) (string, error)
}

// MediaSDK is the full capability surface of the real-time media SDK.
type MediaSDK interface {
	Camera
	Microphone
	Connection
	Peers
	Sandbox

	// Subscribe registers fn to be called after any SDK state change.
	// The returned func removes the subscription.
	Subscribe(fn func()) (unsubscribe func())
	Close() error
}
