// Package noop is the stand-in media SDK used when no media backend is
// available. Every operation succeeds without effect and token issuance
// always fails.
package noop

import (
	"context"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"
)

type SDK struct{}

var _ ports.MediaSDK = SDK{}

func New() SDK {
	return SDK{}
}

func (SDK) PrepareCamera(context.Context, ports.CameraOptions) error { return nil }
func (SDK) IsCameraOn() bool                                         { return false }
func (SDK) ToggleCamera(context.Context) error                       { return nil }
func (SDK) SwitchCamera(context.Context, string) error               { return nil }
func (SDK) Cameras() []domain.Camera                                 { return []domain.Camera{} }
func (SDK) CurrentCamera() *domain.Camera                            { return nil }

func (SDK) IsMicrophoneOn() bool                   { return false }
func (SDK) ToggleMicrophone(context.Context) error { return nil }

func (SDK) JoinRoom(context.Context, ports.JoinRequest) error { return nil }
func (SDK) LeaveRoom(context.Context) error                   { return nil }
func (SDK) PeerStatus() domain.PeerStatus                     { return domain.PeerStatusIdle }

func (SDK) RemotePeers() []domain.RemotePeer { return []domain.RemotePeer{} }

func (SDK) PeerToken(context.Context, string, string) (string, error) { return "", nil }

func (SDK) Subscribe(func()) func() { return func() {} }
func (SDK) Close() error            { return nil }
