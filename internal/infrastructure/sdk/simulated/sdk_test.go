package simulated

import (
	"context"
	"errors"
	"testing"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSandbox struct{ prefix string }

func (s staticSandbox) PeerToken(_ context.Context, room, name string) (string, error) {
	return s.prefix + room + "/" + name, nil
}

var testCameras = []domain.Camera{
	{ID: "front", Name: "Front", Facing: domain.FacingFront},
	{ID: "back", Name: "Back", Facing: domain.FacingBack},
}

func join(t *testing.T, sdk *SDK, room, name string, host bool) {
	t.Helper()
	ctx := context.Background()
	token, err := sdk.PeerToken(ctx, room, name)
	require.NoError(t, err)
	require.NoError(t, sdk.JoinRoom(ctx, ports.JoinRequest{
		PeerToken: token,
		Metadata:  domain.PeerMetadata{DisplayName: name, IsHost: host},
	}))
}

func TestSDK_HostAndViewerSeeEachOther(t *testing.T) {
	hub := NewHub()
	host := New(Options{Hub: hub, Sandbox: staticSandbox{"h:"}, Cameras: testCameras})
	viewer := New(Options{Hub: hub, Sandbox: staticSandbox{"v:"}})

	require.NoError(t, host.PrepareCamera(context.Background(), ports.CameraOptions{CameraEnabled: true}))
	join(t, host, "stream-1", "Demo-host", true)

	notified := make(chan struct{}, 8)
	host.Subscribe(func() { notified <- struct{}{} })

	join(t, viewer, "stream-1", "Demo-viewer", false)
	assert.Equal(t, domain.PeerStatusConnected, viewer.PeerStatus())

	peers := viewer.RemotePeers()
	require.Len(t, peers, 1)
	assert.True(t, peers[0].IsHost())
	assert.Equal(t, "Demo-host", peers[0].DisplayName())
	_, ok := peers[0].ActiveVideoTrack()
	assert.True(t, ok)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("host was not notified of viewer join")
	}
	assert.Len(t, host.RemotePeers(), 1)

	require.NoError(t, host.ToggleCamera(context.Background()))
	_, ok = viewer.RemotePeers()[0].ActiveVideoTrack()
	assert.False(t, ok)

	require.NoError(t, viewer.LeaveRoom(context.Background()))
	assert.Empty(t, host.RemotePeers())
	assert.Empty(t, viewer.RemotePeers())
	assert.Equal(t, domain.PeerStatusIdle, viewer.PeerStatus())
}

func TestSDK_JoinRejectsUnknownToken(t *testing.T) {
	sdk := New(Options{})
	err := sdk.JoinRoom(context.Background(), ports.JoinRequest{PeerToken: "forged"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, domain.PeerStatusIdle, sdk.PeerStatus())
}

func TestSDK_JoinFailureAndLatency(t *testing.T) {
	boom := errors.New("room full")
	sdk := New(Options{Sandbox: staticSandbox{}, JoinLatency: 10 * time.Millisecond, JoinErr: boom})

	token, _ := sdk.PeerToken(context.Background(), "r", "p")
	start := time.Now()
	err := sdk.JoinRoom(context.Background(), ports.JoinRequest{PeerToken: token})
	assert.ErrorIs(t, err, boom)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, domain.PeerStatusError, sdk.PeerStatus())
}

func TestSDK_JoinCancelled(t *testing.T) {
	sdk := New(Options{Sandbox: staticSandbox{}, JoinLatency: time.Second})
	token, _ := sdk.PeerToken(context.Background(), "r", "p")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sdk.JoinRoom(ctx, ports.JoinRequest{PeerToken: token}), context.DeadlineExceeded)
}

func TestSDK_NoSandboxYieldsEmptyToken(t *testing.T) {
	token, err := New(Options{}).PeerToken(context.Background(), "r", "p")
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func TestSDK_Cameras(t *testing.T) {
	sdk := New(Options{Cameras: testCameras})
	assert.Nil(t, sdk.CurrentCamera())

	require.NoError(t, sdk.PrepareCamera(context.Background(), ports.CameraOptions{CameraEnabled: true}))
	assert.True(t, sdk.IsCameraOn())
	assert.True(t, sdk.IsMicrophoneOn())
	assert.Equal(t, "front", sdk.CurrentCamera().ID)

	require.NoError(t, sdk.SwitchCamera(context.Background(), "back"))
	assert.Equal(t, "back", sdk.CurrentCamera().ID)
	assert.ErrorIs(t, sdk.SwitchCamera(context.Background(), "side"), domain.ErrUnknownCamera)

	require.NoError(t, sdk.ToggleMicrophone(context.Background()))
	assert.False(t, sdk.IsMicrophoneOn())
}
